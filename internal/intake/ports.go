package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/vcscsvcscs/raredx/apps/backend/pkg/model"
)

// Diagnoser submits a finished intake to the diagnosis service
type Diagnoser interface {
	Diagnose(ctx context.Context, req model.DiagnosisRequest) (*model.DiagnosisResult, error)
}

// Severity of a user-visible notification
type Severity string

const (
	SeverityNormal      Severity = "normal"
	SeverityDestructive Severity = "destructive"
)

// Notification is a toast shown to the user
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Notifier receives user-visible status messages. Fire-and-forget.
type Notifier interface {
	Notify(n Notification)
}

// FocusHost brings a question input into view
type FocusHost interface {
	Focus(questionID string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// FocusFunc adapts a function to FocusHost
type FocusFunc func(string)

func (f FocusFunc) Focus(id string) { f(id) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

type nopFocus struct{}

func (nopFocus) Focus(string) {}

var (
	ErrUnknownQuestion    = errors.New("unknown question")
	ErrInvalidChoice      = errors.New("value is not one of the question's choices")
	ErrNotEditable        = errors.New("answers can only change while the assessment is in progress")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrAttemptFinished    = errors.New("assessment already completed")
	ErrNothingToRetry     = errors.New("no failed submission to retry")

	// ErrSubmission matches every SubmissionError via errors.Is
	ErrSubmission = errors.New("submission failed")
)

// FailureKind classifies a submission failure
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureStatus    FailureKind = "status"
	FailurePayload   FailureKind = "payload"
)

// SubmissionError is a failed call to the diagnosis service
type SubmissionError struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("diagnosis %s failure (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("diagnosis %s failure: %v", e.Kind, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }

// AsSubmissionError wraps err as a transport failure unless it already is a
// SubmissionError
func AsSubmissionError(err error) *SubmissionError {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se
	}
	return &SubmissionError{Kind: FailureTransport, Err: err}
}
