package devbackend

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/csv"
	"fmt"
	"io"

	"datalens/internal/errors"
)

// KeySize is the AES-256 key length used for downloads
const KeySize = 32

// exportCSV writes the selected columns of t as CSV. No columns selects all.
func exportCSV(t *Table, columns []string) ([]byte, error) {
	if len(columns) == 0 {
		columns = t.Headers
	}
	idx := make([]int, len(columns))
	for i, col := range columns {
		idx[i] = t.Index(col)
		if idx[i] < 0 {
			return nil, columnNotFound(col)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	record := make([]string, len(idx))
	for _, row := range t.Rows {
		for i, j := range idx {
			record[i] = row[j]
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, errors.ConfigInvalid(fmt.Sprintf("download key must be %d bytes", KeySize))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal returns nonce || ciphertext
func seal(aead cipher.AEAD, plain []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

// Decrypt opens a download produced with key
func Decrypt(key, data []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(data) < aead.NonceSize() {
		return nil, errors.InvalidInput("download is truncated")
	}
	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt download")
	}
	return plain, nil
}
