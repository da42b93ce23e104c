package intake

import (
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/model"
)

// FieldError is an inline error shown under a question
type FieldError struct {
	QuestionID string `json:"question_id"`
	Message    string `json:"message"`
}

// Snapshot is an immutable view of a controller. Version grows with every
// change so consumers can drop out-of-order copies.
type Snapshot struct {
	Version      uint64                 `json:"version"`
	AttemptID    string                 `json:"attempt_id"`
	Phase        Phase                  `json:"phase"`
	Section      int                    `json:"section"`
	SectionCount int                    `json:"section_count"`
	SectionTitle string                 `json:"section_title"`
	IsLast       bool                   `json:"is_last_section"`
	CanAdvance   bool                   `json:"can_advance"`
	CanRetreat   bool                   `json:"can_retreat"`
	Progress     int                    `json:"progress"`
	Answers      Answers                `json:"answers"`
	Touched      []string               `json:"touched"`
	Errors       []FieldError           `json:"errors"`
	Result       *model.DiagnosisResult `json:"result,omitempty"`
	Failure      string                 `json:"failure,omitempty"`
}

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	section, _ := c.catalog.Section(c.section)

	errs := []FieldError{}
	for _, q := range section.Questions {
		if HasVisibleError(q, c.touched, c.answers) {
			errs = append(errs, FieldError{QuestionID: q.ID, Message: ErrorText(q)})
		}
	}

	editable := c.phase == PhaseInProgress || c.phase == PhaseFailed
	snap := Snapshot{
		Version:      c.version,
		AttemptID:    c.attemptID,
		Phase:        c.phase,
		Section:      c.section,
		SectionCount: c.catalog.SectionCount(),
		SectionTitle: section.Title,
		IsLast:       c.section == c.catalog.SectionCount()-1,
		CanAdvance:   editable && SectionValid(section, c.answers),
		CanRetreat:   editable && (c.section > 0 || c.phase == PhaseFailed),
		Progress:     Completion(c.catalog, c.answers),
		Answers:      c.answers.Clone(),
		Touched:      c.touched.IDs(),
		Errors:       errs,
		Result:       c.result,
	}
	if c.failure != nil {
		snap.Failure = c.failure.Error()
	}
	return snap
}

// Subscribe returns a channel receiving the latest snapshot after every
// change. Slow readers only see the most recent state. The channel is closed
// by cancel or Close.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	s := &subscriber{ch: make(chan Snapshot, 1)}

	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = s
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(s.ch)
		}
	}
	return s.ch, cancel
}

func (c *Controller) publish(snap Snapshot) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, s := range c.subs {
		if snap.Version <= s.last {
			continue
		}
		s.last = snap.Version
		select {
		case <-s.ch:
		default:
		}
		s.ch <- snap
	}
}
