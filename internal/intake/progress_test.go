package intake

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestCompletion(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, 0, Completion(c, Answers{}))

	full := Answers{}
	for _, q := range c.Questions() {
		full.Set(q.ID, "answer")
	}
	assert.Equal(t, 100, Completion(c, full))

	// 1 of 9 = 11.1%
	assert.Equal(t, 11, Completion(c, Answers{"name": "Ada"}))
	// optional answers count too, 2 of 9 = 22.2%
	assert.Equal(t, 22, Completion(c, Answers{"name": "Ada", "medications": "none"}))
	// blank answers are not counted
	assert.Equal(t, 11, Completion(c, Answers{"name": "Ada", "age": "   "}))
	// answers outside the catalog are ignored
	assert.Equal(t, 0, Completion(c, Answers{"travel": "Peru"}))
}

func TestCompletion_RoundsHalfUp(t *testing.T) {
	qs := make([]Question, 8)
	for i := range qs {
		qs[i] = Question{ID: string(rune('a' + i)), Kind: KindFreeText}
	}
	c := MustCatalog(Section{Title: "Eight", Questions: qs})

	// 1/8 = 12.5%
	assert.Equal(t, 13, Completion(c, Answers{"a": "x"}))
	// 3/8 = 37.5%
	assert.Equal(t, 38, Completion(c, Answers{"a": "x", "b": "x", "c": "x"}))
}

func TestCompletion_EmptyCatalog(t *testing.T) {
	assert.Equal(t, 0, Completion(&Catalog{}, Answers{"a": "x"}))
}

func TestProperty_CompletionMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	catalog := DefaultCatalog()
	ids := []string{}
	for _, q := range catalog.Questions() {
		ids = append(ids, q.ID)
	}

	properties.Property("adding answers never lowers completion", prop.ForAll(
		func(order []int) bool {
			answers := Answers{}
			prev := Completion(catalog, answers)
			for _, i := range order {
				answers.Set(ids[i], "value")
				cur := Completion(catalog, answers)
				if cur < prev || cur < 0 || cur > 100 {
					return false
				}
				prev = cur
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(ids)-1)),
	))

	properties.Property("editing a non-empty answer keeps completion", prop.ForAll(
		func(idx int, first, second string) bool {
			answers := Answers{ids[idx]: "x" + first}
			before := Completion(catalog, answers)
			answers.Set(ids[idx], "y"+second)
			return Completion(catalog, answers) == before
		},
		gen.IntRange(0, len(ids)-1),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
