package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/model"
)

func TestBuildRequest_Defaults(t *testing.T) {
	req := BuildRequest(Answers{
		"name":     "",
		"age":      "abc",
		"gender":   "Male",
		"symptoms": "fatigue",
	})

	assert.Equal(t, model.DiagnosisRequest{
		Name:              "Anonymous",
		Age:               0,
		Gender:            "Male",
		Symptoms:          "fatigue",
		Duration:          "",
		FamilyHistory:     "None reported",
		Medications:       "None",
		PreviousDiagnoses: "None",
		Travel:            "None",
		Allergies:         "None",
		OtherConditions:   "None",
	}, req)
}

func TestBuildRequest_AllAnswered(t *testing.T) {
	req := BuildRequest(Answers{
		"name":               "Ada Lovelace",
		"age":                "36",
		"gender":             "Female",
		"symptoms":           "joint pain",
		"duration":           "1-2 years",
		"family_history":     "mother had lupus",
		"medications":        "ibuprofen",
		"previous_diagnoses": "anemia",
		"other_conditions":   "asthma",
		"travel":             "Brazil",
		"allergies":          "penicillin",
	})

	assert.Equal(t, "Ada Lovelace", req.Name)
	assert.Equal(t, 36, req.Age)
	assert.Equal(t, "1-2 years", req.Duration)
	assert.Equal(t, "mother had lupus", req.FamilyHistory)
	assert.Equal(t, "Brazil", req.Travel)
	assert.Equal(t, "penicillin", req.Allergies)
	assert.Equal(t, "asthma", req.OtherConditions)
}

func TestBuildRequest_BlankIsAbsent(t *testing.T) {
	req := BuildRequest(Answers{"gender": "  ", "medications": "\n"})
	assert.Equal(t, "Unknown", req.Gender)
	assert.Equal(t, "None", req.Medications)
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"35", 35, true},
		{" 42", 42, true},
		{"42 years", 42, true},
		{"3.7", 3, true},
		{"+7", 7, true},
		{"-3", -3, true},
		{"abc", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"about 40", 0, false},
		{"99999999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseAge(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
