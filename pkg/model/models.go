package model

// DiagnosisRequest is the fixed-shape payload sent to the diagnosis service
type DiagnosisRequest struct {
	Name              string `json:"name"`
	Age               int    `json:"age"`
	Gender            string `json:"gender"`
	Symptoms          string `json:"symptoms"`
	Duration          string `json:"duration"`
	FamilyHistory     string `json:"family_history"`
	Medications       string `json:"medications"`
	PreviousDiagnoses string `json:"previous_diagnoses"`
	Travel            string `json:"travel"`
	Allergies         string `json:"allergies"`
	OtherConditions   string `json:"other_conditions"`
}

// Candidate is one ranked rare disease returned by the diagnosis service
type Candidate struct {
	DiseaseName          string   `json:"disease_name"`
	Description          string   `json:"description"`
	Overview             string   `json:"disease_overview"`
	Score                float64  `json:"score"`
	Symptoms             []string `json:"symptoms"`
	DiagnosisSteps       []string `json:"diagnosis"`
	Treatments           []string `json:"treatment"`
	RelatedDisorders     []string `json:"related_disorders"`
	Causes               string   `json:"causes,omitempty"`
	ClinicalSignificance string   `json:"clinical_significance,omitempty"`
	ClinicalTrials       string   `json:"clinical_trials,omitempty"`
	KeyAspects           string   `json:"key_aspects,omitempty"`
}

// DiagnosisResult holds the structured patient details and the candidates in
// the order the service ranked them
type DiagnosisResult struct {
	PatientDetails map[string]any `json:"patient_details"`
	Candidates     []Candidate    `json:"top_rare_diseases"`
}

// DiagnosisResponse is the envelope returned by POST /api/diagnose
type DiagnosisResponse struct {
	Success bool             `json:"success"`
	Data    *DiagnosisResult `json:"data,omitempty"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// MinScore and MaxScore bound a candidate match score
const (
	MinScore = 0
	MaxScore = 100
)
