package ports

import (
	"context"

	"datalens/domain/analysis"
	"datalens/domain/core"
	"datalens/domain/dataset"
)

// DatasetGateway defines the backend operations the analysis workspace uses
type DatasetGateway interface {
	// Overview fetches the raw (normalize=false) or cleaned dataset overview.
	// A 403 is reported as an ACCESS_DENIED error.
	Overview(ctx context.Context, id core.DatasetID, normalize bool) (*dataset.Overview, error)

	// Perform runs one analysis. Backend-reported failures carry the
	// backend's message as an ANALYSIS_FAILED error.
	Perform(ctx context.Context, id core.DatasetID, req analysis.Request) (analysis.Result, error)

	// Download returns the encrypted export of the selected columns
	Download(ctx context.Context, id core.DatasetID, columns []string, normalize bool) ([]byte, error)
}
