// Package session owns the per-browser dashboard state and the backtest
// request lifecycle.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/newthinker/quantview/internal/core"
	"github.com/newthinker/quantview/internal/upload"
	"go.uber.org/zap"
)

// Backend is the remote backtest service as seen by a session.
type Backend interface {
	FetchStrategies(ctx context.Context) []core.Strategy
	RunBacktest(ctx context.Context, req core.BacktestRequest) (*core.BacktestResult, error)
}

// Display is the single active render branch of the results area.
type Display int

const (
	DisplayIdle Display = iota
	DisplayLoading
	DisplayFailure
	DisplaySuccess
)

func (d Display) String() string {
	switch d {
	case DisplayLoading:
		return "loading"
	case DisplayFailure:
		return "failure"
	case DisplaySuccess:
		return "success"
	default:
		return "idle"
	}
}

// State is a copy of the session state.
type State struct {
	Strategies       []core.Strategy
	StrategiesLoaded bool
	SelectedID       *int
	StockCode        string
	StartDate        string
	EndDate          string
	Result           *core.BacktestResult
	Loading          bool
	Error            string
	UploadedImage    string
	LastRequest      *core.BacktestRequest
}

// Display picks the render branch. Loading wins over a stale error or result.
func (s State) Display() Display {
	switch {
	case s.Loading:
		return DisplayLoading
	case s.Error != "":
		return DisplayFailure
	case s.Result != nil:
		return DisplaySuccess
	default:
		return DisplayIdle
	}
}

// CanConfirm reports whether a new backtest may be submitted.
func (s State) CanConfirm() bool {
	return s.SelectedID != nil && !s.Loading
}

// FormRequest builds a request from the current form fields.
func (s State) FormRequest() core.BacktestRequest {
	req := core.BacktestRequest{
		StockCode: s.StockCode,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
	}
	if s.SelectedID != nil {
		req.StrategyID = *s.SelectedID
	}
	return req
}

// StaleRecorder counts dropped completions. *metrics.Registry satisfies it.
type StaleRecorder interface {
	RecordStaleResult()
}

// Coordinator is the single owner of one session's state. All mutation goes
// through its methods; readers get copies via Snapshot.
type Coordinator struct {
	backend  Backend
	logger   *zap.Logger
	recorder StaleRecorder
	baseCtx  context.Context
	uploader *upload.Uploader

	initOnce sync.Once

	mu    sync.Mutex
	state State
	gen   uint64
	done  chan struct{}
}

// Option configures a Coordinator.
type Option func(*coordinatorOptions)

type coordinatorOptions struct {
	logger      *zap.Logger
	recorder    StaleRecorder
	ctx         context.Context
	now         func() time.Time
	uploadLimit int64
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *coordinatorOptions) { o.logger = l }
}

// WithRecorder sets the stale result recorder.
func WithRecorder(r StaleRecorder) Option {
	return func(o *coordinatorOptions) { o.recorder = r }
}

// WithContext sets the lifetime context for background backtests. Runs are
// not tied to the HTTP request that started them.
func WithContext(ctx context.Context) Option {
	return func(o *coordinatorOptions) { o.ctx = ctx }
}

// WithClock overrides time.Now for the default end date.
func WithClock(now func() time.Time) Option {
	return func(o *coordinatorOptions) { o.now = now }
}

// WithUploadLimit sets the reference image size ceiling.
func WithUploadLimit(n int64) Option {
	return func(o *coordinatorOptions) { o.uploadLimit = n }
}

// New creates a coordinator with the default form values: stock 000001,
// from 20240101 to today.
func New(backend Backend, opts ...Option) *Coordinator {
	o := coordinatorOptions{
		logger:      zap.NewNop(),
		ctx:         context.Background(),
		now:         time.Now,
		uploadLimit: upload.DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	c := &Coordinator{
		backend:  backend,
		logger:   o.logger,
		recorder: o.recorder,
		baseCtx:  o.ctx,
		state: State{
			StockCode: core.DefaultStockCode,
			StartDate: core.DefaultStartDate,
			EndDate:   core.Today(o.now()),
		},
	}
	c.uploader = upload.New(o.uploadLimit, c.setUploadedImage)
	return c
}

// Init loads the strategy list once and selects the first strategy when
// nothing is selected yet. Later calls are no-ops.
func (c *Coordinator) Init(ctx context.Context) {
	c.initOnce.Do(func() {
		strategies := c.backend.FetchStrategies(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.state.Strategies = strategies
		c.state.StrategiesLoaded = true
		if c.state.SelectedID == nil && len(strategies) > 0 {
			id := strategies[0].ID
			c.state.SelectedID = &id
			c.invalidateLocked()
		}
		c.logger.Debug("strategies loaded", zap.Int("count", len(strategies)))
	})
}

// SelectStrategy changes the selected strategy; nil clears the selection.
func (c *Coordinator) SelectStrategy(id *int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sameID(c.state.SelectedID, id) {
		return
	}
	if id == nil {
		c.state.SelectedID = nil
	} else {
		v := *id
		c.state.SelectedID = &v
	}
	c.invalidateLocked()
}

// SetStockCode changes the stock code.
func (c *Coordinator) SetStockCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.StockCode == code {
		return
	}
	c.state.StockCode = code
	c.invalidateLocked()
}

// SetDateRange changes the start and end dates (YYYYMMDD).
func (c *Coordinator) SetDateRange(start, end string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.StartDate == start && c.state.EndDate == end {
		return
	}
	c.state.StartDate = start
	c.state.EndDate = end
	c.invalidateLocked()
}

// invalidateLocked drops the shown result and error after a form change.
// A pending request is left alone and will still land.
func (c *Coordinator) invalidateLocked() {
	if c.state.Loading {
		return
	}
	c.state.Result = nil
	c.state.Error = ""
}

// Confirm submits a backtest built from the form. It fails with
// core.ErrNoStrategy when nothing is selected and core.ErrBacktestBusy while
// another request is in flight.
func (c *Coordinator) Confirm() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.SelectedID == nil {
		return core.ErrNoStrategy
	}
	if c.state.Loading {
		return core.ErrBacktestBusy
	}
	c.startLocked(c.state.FormRequest())
	return nil
}

// Retry re-submits the last request with its original parameters,
// date range included.
func (c *Coordinator) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Loading {
		return core.ErrBacktestBusy
	}
	if c.state.LastRequest == nil {
		if c.state.SelectedID == nil {
			return core.ErrNoStrategy
		}
		c.startLocked(c.state.FormRequest())
		return nil
	}
	c.startLocked(*c.state.LastRequest)
	return nil
}

// startLocked enters Loading before the request is dispatched.
func (c *Coordinator) startLocked(req core.BacktestRequest) {
	c.gen++
	gen := c.gen
	done := make(chan struct{})

	c.state.Loading = true
	c.state.Error = ""
	c.state.LastRequest = &req
	c.done = done

	c.logger.Info("backtest started",
		zap.Int("strategy_id", req.StrategyID),
		zap.String("stock_code", req.StockCode),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	go c.run(gen, req, done)
}

func (c *Coordinator) run(gen uint64, req core.BacktestRequest, done chan struct{}) {
	defer close(done)

	result, err := c.backend.RunBacktest(c.baseCtx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Only the newest generation may settle the state. Loading blocks a
	// second start today, so a mismatch means a run was restarted without
	// settling; its completion is counted and dropped.
	if gen != c.gen {
		c.logger.Debug("dropping stale backtest completion", zap.Uint64("generation", gen))
		if c.recorder != nil {
			c.recorder.RecordStaleResult()
		}
		return
	}

	c.state.Loading = false
	if err != nil {
		c.state.Result = nil
		c.state.Error = userMessage(err)
		return
	}
	c.state.Result = result
	c.state.Error = ""
}

// Wait blocks until the in-flight backtest, if any, has settled.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if s.SelectedID != nil {
		id := *s.SelectedID
		s.SelectedID = &id
	}
	if s.LastRequest != nil {
		req := *s.LastRequest
		s.LastRequest = &req
	}
	return s
}

// Uploader returns the session's image uploader.
func (c *Coordinator) Uploader() *upload.Uploader {
	return c.uploader
}

func (c *Coordinator) setUploadedImage(dataURI string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.UploadedImage = dataURI
}

func userMessage(err error) string {
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr.Message != "" {
		return coreErr.Message
	}
	return core.ErrBacktestFailed.Message
}

func sameID(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
