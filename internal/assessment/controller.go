// Package assessment owns the session state of one applicant's assessment:
// the in-flight submission, the last decision and the transaction view.
package assessment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/decision"
	"github.com/secondlook/secondlook/internal/domain"
	"github.com/secondlook/secondlook/internal/form"
	"github.com/secondlook/secondlook/internal/history"
	"github.com/secondlook/secondlook/internal/scoring"
	"github.com/secondlook/secondlook/internal/txview"
)

// GenericFailure is shown for any failure that isn't a server-reported one.
const GenericFailure = "Failed to process M-Pesa statement. Please check your file format and try again."

// ErrSubmissionInFlight is returned by Submit while another submission is
// still waiting for the backend.
var ErrSubmissionInFlight = errors.New("assessment: a submission is already in progress")

// Predictor scores a submission. *scoring.Client implements it.
type Predictor interface {
	Predict(ctx context.Context, sub form.Submission) (*domain.Assessment, error)
}

// Archiver keeps a copy of an accepted statement and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, f form.File) (string, error)
}

// State is a snapshot of the session.
type State struct {
	Result       *domain.DecisionResult `json:"result,omitempty"`
	Transactions []domain.Transaction   `json:"-"`
	Error        string                 `json:"error,omitempty"`
	Loading      bool                   `json:"loading"`
	Filename     string                 `json:"filename,omitempty"`
	ScoredAt     string                 `json:"scored_at,omitempty"`
	View         txview.State           `json:"view"`
}

// HasResult reports whether a decision is on screen.
func (s State) HasResult() bool {
	return s.Result != nil
}

// Controller serializes submissions and holds their outcome. It is safe for
// concurrent use.
type Controller struct {
	mu sync.Mutex

	predictor Predictor
	history   history.Repository
	archiver  Archiver
	log       zerolog.Logger
	now       func() time.Time

	state      State
	engine     *txview.Engine
	generation uint64
	lastID     int64
}

// Option configures a Controller.
type Option func(*Controller)

// WithArchiver archives every successfully scored statement.
func WithArchiver(a Archiver) Option {
	return func(c *Controller) {
		c.archiver = a
	}
}

// WithClock overrides time.Now for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates a controller. repo may be nil to skip history.
func NewController(p Predictor, repo history.Repository, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		predictor: p,
		history:   repo,
		log:       log,
		now:       time.Now,
		state:     State{View: txview.NewState()},
		engine:    txview.New(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends sub to the backend and waits for the outcome. Failures end up
// in State().Error rather than the returned error, which is only
// ErrSubmissionInFlight.
func (c *Controller) Submit(ctx context.Context, sub form.Submission) error {
	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	c.state.Loading = true
	c.state.Error = ""
	gen := c.generation
	c.mu.Unlock()

	log := c.log.With().Str("filename", sub.Statement.Name).Uint64("generation", gen).Logger()
	if sub.Selected > 1 {
		log.Info().Int("selected_files", sub.Selected).Msg("Only the first statement is sent")
	}

	result, err := c.predictor.Predict(ctx, sub)
	if err != nil {
		c.fail(gen, err, log)
		return nil
	}

	var uri string
	if c.archiver != nil && !c.stale(gen) {
		uri, err = c.archiver.Archive(ctx, sub.Statement)
		if err != nil {
			log.Warn().Err(err).Msg("Archiving statement failed")
			uri = ""
		}
	}

	rec, ok := c.succeed(gen, sub.Statement.Name, result)
	if !ok {
		log.Debug().Msg("Discarding stale scoring result")
		return nil
	}
	rec.StatementURI = uri

	log.Info().
		Str("decision_status", string(result.Decision.Status)).
		Float64("alt_score", result.Decision.Score).
		Int("transactions", len(result.Transactions)).
		Msg("Assessment completed")

	if c.history != nil {
		if err := c.history.Append(ctx, rec); err != nil {
			log.Error().Err(err).Int64("history_id", rec.ID).Msg("Saving history failed")
		}
	}
	return nil
}

func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation
}

func (c *Controller) fail(gen uint64, err error, log zerolog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		log.Debug().Err(err).Msg("Discarding stale scoring failure")
		return
	}

	msg := GenericFailure
	var serverErr *scoring.ServerError
	if errors.As(err, &serverErr) {
		msg = serverErr.Message
	}
	c.state.Loading = false
	c.state.Error = msg
	log.Warn().Err(err).Msg("Assessment failed")
}

// succeed installs the result and prepares its history record. ok is false
// when the result belongs to an earlier generation.
func (c *Controller) succeed(gen uint64, filename string, a *domain.Assessment) (rec domain.HistoryRecord, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return domain.HistoryRecord{}, false
	}

	d := a.Decision
	c.state = State{
		Result:       &d,
		Transactions: a.Transactions,
		Loading:      false,
		Filename:     filename,
		ScoredAt:     a.ScoredAt,
		View:         txview.NewState(),
	}
	c.engine = txview.New(a.Transactions)

	now := c.now()
	id := now.UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return domain.NewHistoryRecord(id, now, filename, d, len(a.Transactions)), true
}

// Reset returns to the upload form. Any submission still in flight will be
// ignored when it completes. History is not touched.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = State{View: txview.NewState()}
	c.engine = txview.New(nil)
}

// DismissError clears the error banner.
func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
}

// State returns a snapshot that shares nothing mutable with the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.Result != nil {
		d := *s.Result
		s.Result = &d
	}
	s.Transactions = append([]domain.Transaction(nil), s.Transactions...)
	s.View = s.View.Clone()
	return s
}

// DecisionView renders the current decision, or nil when there is none.
func (c *Controller) DecisionView() *decision.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Result == nil {
		return nil
	}
	v := decision.Render(*c.state.Result, len(c.state.Transactions))
	return &v
}

// TransactionView renders the transaction panel for the current view state.
func (c *Controller) TransactionView() txview.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Render(c.state.View)
}

// UpdateView applies fn to the view state and renders the result. The stored
// state keeps the clamped page.
func (c *Controller) UpdateView(fn func(*txview.State)) txview.View {
	return c.updateWithEngine(func(_ *txview.Engine, s *txview.State) { fn(s) })
}

// GoToPage jumps to page p, clamped to the filtered set.
func (c *Controller) GoToPage(p int) txview.View {
	return c.updateWithEngine(func(e *txview.Engine, s *txview.State) { e.GoToPage(s, p) })
}

// NextPage advances one page.
func (c *Controller) NextPage() txview.View {
	return c.updateWithEngine(func(e *txview.Engine, s *txview.State) { e.NextPage(s) })
}

// PrevPage goes back one page.
func (c *Controller) PrevPage() txview.View {
	return c.updateWithEngine(func(e *txview.Engine, s *txview.State) { e.PrevPage(s) })
}

func (c *Controller) updateWithEngine(fn func(*txview.Engine, *txview.State)) txview.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state.View.Clone()
	fn(c.engine, &s)
	v := c.engine.Render(s)
	c.state.View = v.State.Clone()
	return v
}
