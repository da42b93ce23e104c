package intake

import (
	"strconv"
	"strings"

	"github.com/vcscsvcscs/raredx/apps/backend/pkg/model"
)

// Defaults used when an answer is absent or blank
const (
	DefaultName          = "Anonymous"
	DefaultGender        = "Unknown"
	DefaultFamilyHistory = "None reported"
	DefaultNone          = "None"
)

// BuildRequest coerces the answers into the diagnosis request schema.
// The request is built fresh for every submission attempt.
func BuildRequest(answers Answers) model.DiagnosisRequest {
	age, _ := ParseAge(answers.Get("age"))

	return model.DiagnosisRequest{
		Name:              orDefault(answers, "name", DefaultName),
		Age:               age,
		Gender:            orDefault(answers, "gender", DefaultGender),
		Symptoms:          orDefault(answers, "symptoms", ""),
		Duration:          orDefault(answers, "duration", ""),
		FamilyHistory:     orDefault(answers, "family_history", DefaultFamilyHistory),
		Medications:       orDefault(answers, "medications", DefaultNone),
		PreviousDiagnoses: orDefault(answers, "previous_diagnoses", DefaultNone),
		Travel:            orDefault(answers, "travel", DefaultNone),
		Allergies:         orDefault(answers, "allergies", DefaultNone),
		OtherConditions:   orDefault(answers, "other_conditions", DefaultNone),
	}
}

func orDefault(answers Answers, id, def string) string {
	if !answers.Answered(id) {
		return def
	}
	return answers.Get(id)
}

// ParseAge reads the leading integer of raw ("35", " 42 years", "-3").
// Anything without a leading integer coerces to 0 and ok is false; the
// submission is not rejected for it.
func ParseAge(raw string) (age int, ok bool) {
	s := strings.TrimLeft(raw, " \t\r\n")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
