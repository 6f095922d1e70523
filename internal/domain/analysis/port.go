package analysis

import "context"

// Analyzer port (one analyze call per artifact)
type Analyzer interface {
	Analyze(ctx context.Context, a Artifact) (Result, error)
}

// HistorySource port (backend system of record for past analyses)
type HistorySource interface {
	History(ctx context.Context) ([]Result, error)
}

// Repository port for the reference backend
type Repository interface {
	Save(ctx context.Context, r *Result) error
	Latest(ctx context.Context, limit int) ([]*Result, error)
	Delete(ctx context.Context, id ResultID) (bool, error)
}

// ArtifactArchive port (object storage for uploaded artifacts)
type ArtifactArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ArchivedAnalyzer port (analysis of an artifact that may have a stored copy at fileURL)
type ArchivedAnalyzer interface {
	AnalyzeArchived(ctx context.Context, a Artifact, fileURL string) (Result, error)
}
