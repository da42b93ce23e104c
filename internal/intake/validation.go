package intake

// QuestionValid reports whether q is satisfied by answers. Optional questions
// are always valid.
func QuestionValid(q Question, answers Answers) bool {
	return !q.Required || answers.Answered(q.ID)
}

// SectionValid reports whether every question of s is valid. It is the only
// gate for forward navigation.
func SectionValid(s Section, answers Answers) bool {
	for _, q := range s.Questions {
		if !QuestionValid(q, answers) {
			return false
		}
	}
	return true
}

// HasVisibleError reports whether an inline error should be shown for q.
// Untouched questions never show errors.
func HasVisibleError(q Question, touched Touched, answers Answers) bool {
	return q.Required && touched.Has(q.ID) && !QuestionValid(q, answers)
}

// FirstInvalid returns the first invalid question of s in section order
func FirstInvalid(s Section, answers Answers) (Question, bool) {
	for _, q := range s.Questions {
		if !QuestionValid(q, answers) {
			return q, true
		}
	}
	return Question{}, false
}

// VisibleErrors returns the ids in s that currently show an inline error
func VisibleErrors(s Section, touched Touched, answers Answers) []string {
	var ids []string
	for _, q := range s.Questions {
		if HasVisibleError(q, touched, answers) {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// ErrorText is the inline message shown under an invalid question
func ErrorText(q Question) string {
	if q.Kind == KindSingleChoice {
		return "Please select an option"
	}
	return "This field is required"
}
