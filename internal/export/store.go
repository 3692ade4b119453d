// Package export writes workspace artifacts (chart images, HTML reports,
// dataset downloads) under a base directory using slash-separated keys.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"datalens/domain/core"
)

// Metadata describes one stored artifact
type Metadata struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store keeps artifacts on the local filesystem
type Store struct {
	basePath string
}

// NewStore creates a store rooted at basePath, creating it if needed
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Put writes data under key. data may be []byte, string or io.Reader.
// It returns the filesystem path written.
func (s *Store) Put(ctx context.Context, key string, data interface{}) (string, error) {
	filePath, err := s.keyToPath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	var content []byte
	switch v := data.(type) {
	case []byte:
		content = v
	case string:
		content = []byte(v)
	case io.Reader:
		content, err = io.ReadAll(v)
		if err != nil {
			return "", fmt.Errorf("failed to read data: %w", err)
		}
	default:
		return "", fmt.Errorf("unsupported artifact type %T", data)
	}

	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	return filePath, nil
}

// Get opens the artifact stored under key
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := s.keyToPath(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewNotFoundError("artifact", key)
		}
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	return file, nil
}

// Exists reports whether key is stored
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	filePath, err := s.keyToPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check %s: %w", key, err)
}

// List returns the keys starting with prefix, sorted
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.Walk(s.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Stat returns metadata for key
func (s *Store) Stat(ctx context.Context, key string) (*Metadata, error) {
	filePath, err := s.keyToPath(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewNotFoundError("artifact", key)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return &Metadata{
		Key:          key,
		Size:         info.Size(),
		ContentType:  ContentType(key),
		LastModified: info.ModTime(),
	}, nil
}

// ContentType guesses a MIME type from the key's extension
func ContentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".html":
		return "text/html; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// ChartKey names the PNG of a dataset's category chart
func ChartKey(id core.DatasetID, column, kind string) string {
	return fmt.Sprintf("%s/charts/%s-%s.png", id, sanitize(column), kind)
}

// ReportKey names an analysis report
func ReportKey(id core.DatasetID, operation string, at time.Time) string {
	return fmt.Sprintf("%s/reports/%s-%s.html", id, operation, at.UTC().Format("20060102T150405Z"))
}

// DownloadKey names a dataset export
func DownloadKey(id core.DatasetID, normalize bool) string {
	variant := "raw"
	if normalize {
		variant = "clean"
	}
	return fmt.Sprintf("%s/downloads/%s-%s.bin", id, id, variant)
}

// keyToPath maps a slash key under the base path, rejecting escapes
func (s *Store) keyToPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.Join(s.basePath, clean), nil
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "column"
	}
	return b.String()
}
