package intake

import (
	"sort"
	"strings"
)

// Answers maps question ids to raw input. A key is never removed once set;
// clearing stores the empty string.
type Answers map[string]string

// Set records a value for a question
func (a Answers) Set(id, value string) {
	a[id] = value
}

// Get returns the raw value, empty when unanswered
func (a Answers) Get(id string) string {
	return a[id]
}

// Answered reports whether the trimmed value is non-empty
func (a Answers) Answered(id string) bool {
	return strings.TrimSpace(a[id]) != ""
}

// Clone returns an independent copy
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Touched is the set of questions the user has interacted with. It only grows
// within one attempt.
type Touched map[string]struct{}

// Mark adds id to the set; marking twice is a no-op
func (t Touched) Mark(id string) {
	t[id] = struct{}{}
}

// Has reports whether id was touched
func (t Touched) Has(id string) bool {
	_, ok := t[id]
	return ok
}

// IDs returns the touched ids sorted
func (t Touched) IDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy
func (t Touched) Clone() Touched {
	out := make(Touched, len(t))
	for k := range t {
		out[k] = struct{}{}
	}
	return out
}
