package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/medassist/internal/application"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

// KeyFunc names the archive object for an upload.
type KeyFunc func(a analysis.Artifact, id analysis.ResultID) string

// Service implements the use-cases behind the reference analysis backend.
// Service is safe for concurrent use; all state lives in its collaborators.
type Service struct {
	Analyzer analysis.ArchivedAnalyzer
	Archive  analysis.ArtifactArchive // optional
	Repo     analysis.Repository
	Clock    application.Clock
	Key      KeyFunc
	Cons     analysis.Constraints
}

// AnalyzeCommand is one upload as received by the backend.
type AnalyzeCommand struct {
	Category    analysis.Category
	Name        string
	ContentType string
	Data        []byte
	Severity    analysis.Severity
}

// Analyze validates → archives → analyzes → stores.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (analysis.Result, error) {
	art, err := s.artifact(cmd)
	if err != nil {
		return analysis.Result{}, err
	}

	now := time.Now()
	if s.Clock != nil {
		now = s.Clock.Now()
	}
	id := analysis.ResultID(uuid.New().String())

	var fileURL string
	if s.Archive != nil && art.Category != analysis.CategoryText {
		key := s.key(art, id)
		fileURL, err = s.Archive.Put(ctx, key, art.Data, art.ContentType)
		if err != nil {
			// the analysis still works on the in-memory bytes
			slog.WarnContext(ctx, "archive upload failed", "key", key, "error", err)
			fileURL = ""
		}
	}

	res, err := s.Analyzer.AnalyzeArchived(ctx, art, fileURL)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("analyze %s: %w", art.Category, err)
	}

	res.ID = id
	res.Category = art.Category
	res.Timestamp = now
	res.FileURL = fileURL
	if res.Disclaimer == "" {
		res.Disclaimer = analysis.DefaultDisclaimer
	}
	if art.Category == analysis.CategoryText {
		res.Input = art.Text()
		res.Severity = art.Severity
	}

	if s.Repo != nil {
		if err := s.Repo.Save(ctx, &res); err != nil {
			return analysis.Result{}, fmt.Errorf("save result: %w", err)
		}
	}
	return res, nil
}

// History returns the newest stored results.
func (s *Service) History(ctx context.Context, limit int) ([]analysis.Result, error) {
	if s.Repo == nil {
		return []analysis.Result{}, nil
	}
	rows, err := s.Repo.Latest(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]analysis.Result, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Delete removes a stored result; ErrNotFound when there is none.
func (s *Service) Delete(ctx context.Context, id analysis.ResultID) error {
	if s.Repo == nil {
		return fmt.Errorf("%w: %s", analysis.ErrNotFound, id)
	}
	ok, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", analysis.ErrNotFound, id)
	}
	return nil
}

func (s *Service) artifact(cmd AnalyzeCommand) (analysis.Artifact, error) {
	if cmd.Category == analysis.CategoryText {
		return analysis.NewTextArtifact(string(cmd.Data), cmd.Severity)
	}
	cons := s.Cons
	if cons.Accept == nil {
		cons = analysis.DefaultConstraints()
	}
	return analysis.Validate(analysis.Candidate{
		Name:        cmd.Name,
		Category:    cmd.Category,
		ContentType: cmd.ContentType,
		Data:        cmd.Data,
	}, cons)
}

func (s *Service) key(a analysis.Artifact, id analysis.ResultID) string {
	if s.Key != nil {
		return s.Key(a, id)
	}
	return fmt.Sprintf("%s/%s-%s", a.Category, id, a.Name)
}
