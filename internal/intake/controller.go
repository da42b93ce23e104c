package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// Phase of one assessment attempt
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitting Phase = "submitting"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// DefaultSubmitTimeout bounds a single call to the diagnosis service
const DefaultSubmitTimeout = 2 * time.Minute

// Options configures a Controller
type Options struct {
	Notifier      Notifier
	Focus         FocusHost
	SubmitTimeout time.Duration
	Logger        *zap.Logger
}

// Controller owns the answers, touched set and navigation state of one
// assessment. All operations are serialized; the diagnosis call runs on its
// own goroutine and its outcome is applied only to the submission that
// started it.
type Controller struct {
	catalog   *Catalog
	diagnoser Diagnoser
	notifier  Notifier
	focus     FocusHost
	logger    *zap.Logger
	timeout   time.Duration

	mu        sync.Mutex
	version   uint64
	attemptID string
	answers   Answers
	touched   Touched
	phase     Phase
	section   int
	result    *model.DiagnosisResult
	failure   *SubmissionError
	closed    bool

	// seq identifies the current submission; bumped on every submission
	// start and on restart so late responses can be recognized.
	seq     uint64
	cancel  context.CancelFunc
	settled chan struct{}

	subMu     sync.Mutex
	subs      map[int]*subscriber
	nextSubID int
}

type subscriber struct {
	ch   chan Snapshot
	last uint64
}

// effects are collected under the lock and dispatched after it is released
type effects struct {
	notes []Notification
	focus string
}

// NewController starts a fresh attempt at section 0
func NewController(catalog *Catalog, diagnoser Diagnoser, opts Options) *Controller {
	c := &Controller{
		catalog:   catalog,
		diagnoser: diagnoser,
		notifier:  opts.Notifier,
		focus:     opts.Focus,
		logger:    opts.Logger,
		timeout:   opts.SubmitTimeout,
		subs:      make(map[int]*subscriber),
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.focus == nil {
		c.focus = nopFocus{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.timeout <= 0 {
		c.timeout = DefaultSubmitTimeout
	}
	c.resetLocked()
	return c
}

// Catalog returns the catalog the controller navigates
func (c *Controller) Catalog() *Catalog {
	return c.catalog
}

func (c *Controller) resetLocked() {
	c.attemptID = uuid.New().String()
	c.answers = make(Answers)
	c.touched = make(Touched)
	c.phase = PhaseInProgress
	c.section = 0
	c.result = nil
	c.failure = nil
	c.version++
}

func (c *Controller) editableLocked() bool {
	return !c.closed && (c.phase == PhaseInProgress || c.phase == PhaseFailed)
}

// SetAnswer records raw input for a question. Choosing an option of a
// single-choice question also marks it touched.
func (c *Controller) SetAnswer(questionID, value string) error {
	c.mu.Lock()
	q, ok := c.catalog.Question(questionID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if !q.Kind.accepts(q, value) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q for %s", ErrInvalidChoice, value, questionID)
	}
	if !c.editableLocked() {
		c.mu.Unlock()
		return ErrNotEditable
	}

	c.answers.Set(questionID, value)
	if q.Kind == KindSingleChoice && value != "" {
		c.touched.Mark(questionID)
	}
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.dispatch(effects{}, snap)
	return nil
}

// Touch marks a question as interacted with (blur)
func (c *Controller) Touch(questionID string) error {
	c.mu.Lock()
	if _, ok := c.catalog.Question(questionID); !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if c.touched.Has(questionID) {
		c.mu.Unlock()
		return nil
	}
	c.touched.Mark(questionID)
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.dispatch(effects{}, snap)
	return nil
}

// Advance validates the current section and moves forward. On the last
// section a valid advance starts the submission. A failed validation is
// reported through the notifier and focus host and leaves the section
// unchanged; it is not returned as an error.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	fx, err := c.advanceLocked(ctx)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.dispatch(fx, snap)
	return err
}

func (c *Controller) advanceLocked(ctx context.Context) (effects, error) {
	var fx effects

	if c.closed {
		return fx, ErrNotEditable
	}
	switch c.phase {
	case PhaseSubmitting:
		c.logger.Info("advance ignored, submission in flight", zap.String("attempt_id", c.attemptID))
		return fx, ErrSubmissionInFlight
	case PhaseCompleted:
		return fx, ErrAttemptFinished
	case PhaseFailed:
		c.phase = PhaseInProgress
		c.failure = nil
	}

	section, _ := c.catalog.Section(c.section)
	for _, q := range section.Questions {
		if q.Required {
			c.touched.Mark(q.ID)
		}
	}
	c.version++

	if invalid, found := FirstInvalid(section, c.answers); found {
		c.logger.Info("section incomplete",
			zap.String("attempt_id", c.attemptID),
			zap.Int("section", c.section),
			zap.String("first_invalid", invalid.ID),
		)
		fx.notes = append(fx.notes, Notification{
			Title:       "Missing Information",
			Description: "Please complete all required fields before continuing.",
			Severity:    SeverityDestructive,
		})
		fx.focus = invalid.ID
		return fx, nil
	}

	if c.section < c.catalog.SectionCount()-1 {
		c.section++
		c.logger.Info("advanced to section",
			zap.String("attempt_id", c.attemptID),
			zap.Int("section", c.section),
		)
		return fx, nil
	}

	c.startSubmissionLocked(ctx)
	return fx, nil
}

// Retry re-submits after a failed submission
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseFailed {
		phase := c.phase
		c.mu.Unlock()
		if phase == PhaseSubmitting {
			return ErrSubmissionInFlight
		}
		return ErrNothingToRetry
	}
	fx, err := c.advanceLocked(ctx)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.dispatch(fx, snap)
	return err
}

// Retreat moves back one section without validation. It is a no-op on the
// first section, while submitting and once completed.
func (c *Controller) Retreat() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	changed := false
	switch c.phase {
	case PhaseInProgress:
		if c.section > 0 {
			c.section--
			changed = true
		}
	case PhaseFailed:
		c.phase = PhaseInProgress
		c.failure = nil
		if c.section > 0 {
			c.section--
		}
		changed = true
	}
	if !changed {
		c.mu.Unlock()
		return
	}
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.dispatch(effects{}, snap)
}

// Restart discards the attempt and starts over at section 0. A submission in
// flight is cancelled and its response, if any, is ignored.
func (c *Controller) Restart() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.abandonSubmissionLocked()
	previous := c.attemptID
	c.resetLocked()
	c.logger.Info("assessment restarted",
		zap.String("previous_attempt_id", previous),
		zap.String("attempt_id", c.attemptID),
	)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.dispatch(effects{}, snap)
}

// Close abandons any submission and ends all subscriptions
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.abandonSubmissionLocked()
	c.mu.Unlock()

	c.subMu.Lock()
	for id, s := range c.subs {
		close(s.ch)
		delete(c.subs, id)
	}
	c.subMu.Unlock()
}

func (c *Controller) abandonSubmissionLocked() {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.settled != nil {
		close(c.settled)
		c.settled = nil
	}
}

func (c *Controller) startSubmissionLocked(ctx context.Context) {
	c.seq++
	seq := c.seq
	req := BuildRequest(c.answers)
	if c.answers.Answered("age") {
		if _, ok := ParseAge(c.answers.Get("age")); !ok {
			c.logger.Warn("age is not a number, submitting 0",
				zap.String("attempt_id", c.attemptID),
			)
		}
	}

	// The submission outlives the caller's request.
	subCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	c.cancel = cancel
	c.settled = make(chan struct{})
	c.phase = PhaseSubmitting
	c.failure = nil
	c.result = nil
	c.version++

	c.logger.Info("submitting assessment",
		zap.String("attempt_id", c.attemptID),
		zap.Uint64("submission", seq),
	)

	go c.runSubmission(subCtx, seq, req)
}

func (c *Controller) runSubmission(ctx context.Context, seq uint64, req model.DiagnosisRequest) {
	start := time.Now()
	result, err := c.diagnoser.Diagnose(ctx, req)
	if err == nil && result == nil {
		err = &SubmissionError{Kind: FailurePayload, Err: errors.New("empty diagnosis result")}
	}

	c.mu.Lock()
	if seq != c.seq || c.phase != PhaseSubmitting {
		c.mu.Unlock()
		c.logger.Info("discarding stale diagnosis response",
			zap.Uint64("submission", seq),
			zap.Error(err),
		)
		return
	}

	var fx effects
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err != nil {
		c.phase = PhaseFailed
		c.failure = AsSubmissionError(err)
		c.logger.Error("diagnosis submission failed",
			zap.String("attempt_id", c.attemptID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		fx.notes = append(fx.notes, Notification{
			Title:       "Analysis failed",
			Description: "Unable to analyze symptoms. Please try again later.",
			Severity:    SeverityDestructive,
		})
	} else {
		c.phase = PhaseCompleted
		c.result = result
		c.logger.Info("diagnosis completed",
			zap.String("attempt_id", c.attemptID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("candidates", len(result.Candidates)),
		)
		fx.notes = append(fx.notes, Notification{
			Title:       "Analysis complete",
			Description: fmt.Sprintf("Found %d potential matches", len(result.Candidates)),
			Severity:    SeverityNormal,
		})
	}
	c.version++
	settled := c.settled
	c.settled = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.dispatch(fx, snap)
	close(settled)
}

// Wait blocks until no submission is in flight and returns the state
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()

	if settled != nil {
		select {
		case <-settled:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
	return c.Snapshot(), nil
}

func (c *Controller) dispatch(fx effects, snap Snapshot) {
	for _, n := range fx.notes {
		c.notifier.Notify(n)
	}
	if fx.focus != "" {
		c.focus.Focus(fx.focus)
	}
	c.publish(snap)
}
