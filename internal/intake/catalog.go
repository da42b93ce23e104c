package intake

import (
	"fmt"
)

// Kind is the input variant of a question
type Kind int

const (
	KindFreeText Kind = iota + 1
	KindLongText
	KindSingleChoice
)

// String returns the wire name of the kind
func (k Kind) String() string {
	switch k {
	case KindFreeText:
		return "text"
	case KindLongText:
		return "textarea"
	case KindSingleChoice:
		return "single"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// check verifies the question shape for its kind. Every kind must be handled
// here and in accepts.
func (k Kind) check(q Question) error {
	switch k {
	case KindFreeText, KindLongText:
		if len(q.Choices) > 0 {
			return fmt.Errorf("question %s: %s question cannot have choices", q.ID, k)
		}
	case KindSingleChoice:
		if len(q.Choices) == 0 {
			return fmt.Errorf("question %s: single-choice question needs choices", q.ID)
		}
		seen := make(map[string]struct{}, len(q.Choices))
		for _, c := range q.Choices {
			if c == "" {
				return fmt.Errorf("question %s: empty choice", q.ID)
			}
			if _, dup := seen[c]; dup {
				return fmt.Errorf("question %s: duplicate choice %q", q.ID, c)
			}
			seen[c] = struct{}{}
		}
	default:
		return fmt.Errorf("question %s: unknown kind %d", q.ID, int(k))
	}
	return nil
}

// accepts reports whether value is an acceptable raw input for q.
// Clearing (empty value) is always accepted.
func (k Kind) accepts(q Question, value string) bool {
	if value == "" {
		return true
	}
	switch k {
	case KindSingleChoice:
		for _, c := range q.Choices {
			if c == value {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Question is one prompt of the intake form
type Question struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"question"`
	Kind        Kind     `json:"type"`
	Choices     []string `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required"`
}

// Section is a titled group of questions shown as one navigation step
type Section struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// Catalog is the ordered, immutable list of sections
type Catalog struct {
	sections []Section
	flat     []Question
	index    map[string]int
}

// NewCatalog validates the sections and builds a catalog from them
func NewCatalog(sections ...Section) (*Catalog, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("catalog needs at least one section")
	}

	c := &Catalog{
		sections: make([]Section, 0, len(sections)),
		index:    make(map[string]int),
	}
	for i, s := range sections {
		if len(s.Questions) == 0 {
			return nil, fmt.Errorf("section %d (%s) has no questions", i, s.Title)
		}
		qs := make([]Question, len(s.Questions))
		for j, q := range s.Questions {
			if q.ID == "" {
				return nil, fmt.Errorf("section %d question %d has no id", i, j)
			}
			if _, dup := c.index[q.ID]; dup {
				return nil, fmt.Errorf("duplicate question id: %s", q.ID)
			}
			if err := q.Kind.check(q); err != nil {
				return nil, err
			}
			q.Choices = append([]string(nil), q.Choices...)
			qs[j] = q
			c.index[q.ID] = len(c.flat)
			c.flat = append(c.flat, q)
		}
		s.Questions = qs
		c.sections = append(c.sections, s)
	}

	return c, nil
}

// MustCatalog is NewCatalog for static definitions
func MustCatalog(sections ...Section) *Catalog {
	c, err := NewCatalog(sections...)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the rare-disease assessment questionnaire
func DefaultCatalog() *Catalog {
	return MustCatalog(
		Section{
			Title:       "Personal Information",
			Description: "Let's start with some basic information about you.",
			Questions: []Question{
				{ID: "name", Prompt: "What is your full name?", Kind: KindFreeText, Placeholder: "John Doe", Required: true},
				{ID: "age", Prompt: "What is your age?", Kind: KindFreeText, Placeholder: "e.g., 35", Required: true},
				{
					ID:       "gender",
					Prompt:   "What is your gender?",
					Kind:     KindSingleChoice,
					Choices:  []string{"Male", "Female", "Other", "Prefer not to say"},
					Required: true,
				},
			},
		},
		Section{
			Title:       "Symptoms & History",
			Description: "Tell us about your symptoms and medical history.",
			Questions: []Question{
				{
					ID:          "symptoms",
					Prompt:      "What symptoms are you experiencing?",
					Kind:        KindLongText,
					Placeholder: "Describe your symptoms in detail, including when they started and how they affect you",
					Required:    true,
				},
				{
					ID:       "duration",
					Prompt:   "How long have you been experiencing these symptoms?",
					Kind:     KindSingleChoice,
					Choices:  []string{"Less than 1 month", "1-6 months", "6-12 months", "1-2 years", "More than 2 years"},
					Required: true,
				},
				{
					ID:          "family_history",
					Prompt:      "Is there any family history of similar symptoms or rare diseases?",
					Kind:        KindLongText,
					Placeholder: "Please describe any relevant family medical history",
				},
			},
		},
		Section{
			Title:       "Medical Background",
			Description: "Help us understand your medical background.",
			Questions: []Question{
				{
					ID:          "medications",
					Prompt:      "Are you currently taking any medications?",
					Kind:        KindLongText,
					Placeholder: "List all current medications, including dosages",
				},
				{
					ID:          "previous_diagnoses",
					Prompt:      "Have you been diagnosed with any medical conditions in the past?",
					Kind:        KindLongText,
					Placeholder: "List any previous medical diagnoses",
				},
				{
					ID:          "other_conditions",
					Prompt:      "Are there any other health conditions or concerns we should know about?",
					Kind:        KindLongText,
					Placeholder: "Please provide any additional health information",
				},
			},
		},
	)
}

// Sections returns a copy of the sections in navigation order
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.sections))
	copy(out, c.sections)
	return out
}

// Section returns the section at index i
func (c *Catalog) Section(i int) (Section, bool) {
	if i < 0 || i >= len(c.sections) {
		return Section{}, false
	}
	return c.sections[i], true
}

// SectionCount returns the number of sections
func (c *Catalog) SectionCount() int {
	return len(c.sections)
}

// Questions returns every question across all sections in order
func (c *Catalog) Questions() []Question {
	out := make([]Question, len(c.flat))
	copy(out, c.flat)
	return out
}

// Question returns a question by its ID
func (c *Catalog) Question(id string) (Question, bool) {
	i, ok := c.index[id]
	if !ok {
		return Question{}, false
	}
	return c.flat[i], true
}
