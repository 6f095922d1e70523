package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/medassist/internal/application"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

// State of one upload-analyze cycle.
type State string

const (
	StateIdle      State = "idle"
	StateSelecting State = "selecting"
	StateAnalyzing State = "analyzing"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Recorder receives every successful analysis exactly once.
type Recorder interface {
	Append(r analysis.Result)
}

// ArtifactInfo is the part of the selection a view may render.
type ArtifactInfo struct {
	Name     string            `json:"name"`
	Category analysis.Category `json:"type"`
	Size     int64             `json:"size"`
	Severity analysis.Severity `json:"severity,omitempty"`
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	State    State            `json:"state"`
	Artifact *ArtifactInfo    `json:"artifact,omitempty"`
	Result   *analysis.Result `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
	Seq      uint64           `json:"seq"`
}

// Controller owns the current selection and the loading/error/result state.
// At most one request is current; responses for older sequence numbers are
// dropped no matter how they finish. The lock is never held across the
// analyzer call.
type Controller struct {
	Analyzer    analysis.Analyzer
	History     Recorder
	Constraints analysis.Constraints
	Clock       application.Clock
	// Timeout bounds one analyze call; zero means none.
	Timeout time.Duration

	mu       sync.Mutex
	state    State
	artifact *analysis.Artifact
	result   *analysis.Result
	err      error
	seq      uint64
	cancel   context.CancelFunc
}

func NewController(an analysis.Analyzer, rec Recorder, cons analysis.Constraints) *Controller {
	return &Controller{
		Analyzer:    an,
		History:     rec,
		Constraints: cons,
		Clock:       application.SystemClock{},
		state:       StateIdle,
	}
}

// Select validates a candidate and makes it the current selection. A
// rejected candidate leaves the state untouched.
func (c *Controller) Select(cand analysis.Candidate) error {
	a, err := analysis.Validate(cand, c.Constraints)
	if err != nil {
		return err
	}
	c.setArtifact(a)
	return nil
}

// SelectText makes typed symptoms the current selection.
func (c *Controller) SelectText(text string, sev analysis.Severity) error {
	a, err := analysis.NewTextArtifact(text, sev)
	if err != nil {
		return err
	}
	c.setArtifact(a)
	return nil
}

func (c *Controller) setArtifact(a analysis.Artifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersedeLocked()
	c.artifact = &a
	c.result = nil
	c.err = nil
	c.state = StateSelecting
}

// Clear drops the selection and returns to Idle.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersedeLocked()
	c.artifact = nil
	c.result = nil
	c.err = nil
	c.state = StateIdle
}

// supersedeLocked invalidates the in-flight request, if any. Cancelling the
// transport is best effort; the sequence bump is what guarantees the stale
// outcome is ignored.
func (c *Controller) supersedeLocked() {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Submit runs one analyze cycle for the current selection. It returns
// ErrPrecondition when nothing is selected; every other failure is recorded
// in the snapshot and never returned.
func (c *Controller) Submit(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.artifact == nil {
		c.mu.Unlock()
		return c.Snapshot(), analysis.ErrPrecondition
	}
	c.supersedeLocked()
	seq := c.seq
	art := *c.artifact

	var reqCtx context.Context
	var cancel context.CancelFunc
	if c.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.Timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	c.cancel = cancel
	c.state = StateAnalyzing
	c.result = nil
	c.err = nil
	c.mu.Unlock()

	req := analysis.Request{Artifact: art, Category: art.Category, Seq: seq}
	res, err := c.Analyzer.Analyze(reqCtx, req.Artifact)
	cancel()

	c.complete(req, res, err)
	return c.Snapshot(), nil
}

// Retry re-issues the analyze call with the same artifact.
func (c *Controller) Retry(ctx context.Context) (Snapshot, error) {
	return c.Submit(ctx)
}

func (c *Controller) complete(req analysis.Request, res analysis.Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.Seq != c.seq {
		slog.Debug("dropping stale analysis outcome", "seq", req.Seq, "current", c.seq, "error", err)
		return
	}
	c.cancel = nil

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, analysis.ErrNetwork) {
			err = errors.Join(analysis.ErrNetwork, err)
		}
		slog.Warn("analysis failed", "category", req.Category, "seq", req.Seq, "error", err)
		c.err = err
		c.state = StateFailed
		return
	}

	if res.ID == "" {
		res.ID = analysis.ResultID(uuid.NewString())
	}
	if res.Category == "" {
		res.Category = req.Category
	}
	if res.Timestamp.IsZero() {
		res.Timestamp = c.now()
	}
	if res.Disclaimer == "" {
		res.Disclaimer = analysis.DefaultDisclaimer
	}
	if res.Severity == "" {
		res.Severity = req.Artifact.Severity
	}
	if res.Input == "" && req.Category == analysis.CategoryText {
		res.Input = req.Artifact.Text()
	}

	c.result = &res
	c.state = StateSucceeded
	if c.History != nil {
		c.History.Append(res)
	}
}

func (c *Controller) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{State: c.state, Seq: c.seq}
	if snap.State == "" {
		snap.State = StateIdle
	}
	if c.artifact != nil {
		snap.Artifact = &ArtifactInfo{
			Name:     c.artifact.Name,
			Category: c.artifact.Category,
			Size:     c.artifact.Size,
			Severity: c.artifact.Severity,
		}
	}
	if c.result != nil {
		r := *c.result
		snap.Result = &r
	}
	if c.err != nil {
		snap.Error = analysis.UserMessage(c.err)
	}
	return snap
}

// Err returns the raw error behind a Failed state.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
