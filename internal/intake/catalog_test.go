package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	require.Equal(t, 3, c.SectionCount())
	assert.Len(t, c.Questions(), 9)

	titles := []string{}
	for _, s := range c.Sections() {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Personal Information", "Symptoms & History", "Medical Background"}, titles)

	gender, ok := c.Question("gender")
	require.True(t, ok)
	assert.Equal(t, KindSingleChoice, gender.Kind)
	assert.True(t, gender.Required)
	assert.Equal(t, []string{"Male", "Female", "Other", "Prefer not to say"}, gender.Choices)

	history, ok := c.Question("family_history")
	require.True(t, ok)
	assert.False(t, history.Required)
	assert.Equal(t, KindLongText, history.Kind)

	_, ok = c.Question("travel")
	assert.False(t, ok, "travel is mapped into the request but not asked")
}

func TestNewCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		sections []Section
	}{
		{name: "no sections"},
		{
			name:     "empty section",
			sections: []Section{{Title: "Empty"}},
		},
		{
			name: "duplicate id",
			sections: []Section{
				{Title: "A", Questions: []Question{{ID: "x", Kind: KindFreeText}}},
				{Title: "B", Questions: []Question{{ID: "x", Kind: KindLongText}}},
			},
		},
		{
			name:     "missing id",
			sections: []Section{{Title: "A", Questions: []Question{{Kind: KindFreeText}}}},
		},
		{
			name:     "choice without options",
			sections: []Section{{Title: "A", Questions: []Question{{ID: "x", Kind: KindSingleChoice}}}},
		},
		{
			name: "text with options",
			sections: []Section{{Title: "A", Questions: []Question{
				{ID: "x", Kind: KindFreeText, Choices: []string{"a"}},
			}}},
		},
		{
			name: "duplicate option",
			sections: []Section{{Title: "A", Questions: []Question{
				{ID: "x", Kind: KindSingleChoice, Choices: []string{"a", "a"}},
			}}},
		},
		{
			name:     "unknown kind",
			sections: []Section{{Title: "A", Questions: []Question{{ID: "x"}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.sections...)
			assert.Error(t, err)
		})
	}
}

func TestCatalog_CopiesInput(t *testing.T) {
	choices := []string{"yes", "no"}
	c := MustCatalog(Section{Title: "A", Questions: []Question{
		{ID: "q", Kind: KindSingleChoice, Choices: choices},
	}})

	choices[0] = "changed"

	q, _ := c.Question("q")
	assert.Equal(t, "yes", q.Choices[0])
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "text", KindFreeText.String())
	assert.Equal(t, "textarea", KindLongText.String())
	assert.Equal(t, "single", KindSingleChoice.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
