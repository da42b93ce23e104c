package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/audit"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/azure"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// TopCandidates is how many rare diseases the model is asked to rank
const TopCandidates = 3

// ErrUnparsableAnswer is returned when the model answer holds no usable JSON
var ErrUnparsableAnswer = errors.New("failed to parse AI response")

// RequestMeta identifies the caller for the audit trail
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// DiagnosisService ranks rare diseases for a patient intake using a language model
type DiagnosisService struct {
	completer azure.Completer
	archive   *IntakeArchive
	audit     audit.Recorder
	logger    *zap.Logger
}

// NewDiagnosisService creates a new DiagnosisService. archive may be nil.
func NewDiagnosisService(completer azure.Completer, archive *IntakeArchive, recorder audit.Recorder, logger *zap.Logger) *DiagnosisService {
	return &DiagnosisService{
		completer: completer,
		archive:   archive,
		audit:     recorder,
		logger:    logger,
	}
}

// Diagnose archives the intake, asks the model for the top candidates and
// returns them normalized, in the order the model ranked them
func (s *DiagnosisService) Diagnose(ctx context.Context, patient map[string]any, meta RequestMeta) (*model.DiagnosisResult, error) {
	startTime := time.Now()
	resourceID := uuid.New().String()

	if s.archive != nil {
		// archiving is best effort
		blobName, err := s.archive.Save(ctx, patient)
		if err != nil {
			s.logger.Error("failed to archive intake", zap.Error(err))
		} else {
			resourceID = blobName
		}
		s.recordArchive(ctx, blobName, err, meta)
	}

	result, err := s.analyze(ctx, patient)

	entry := audit.Entry{
		OperationType: audit.OperationSubmit,
		ResourceType:  audit.ResourceDiagnosis,
		ResourceID:    resourceID,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		AdditionalData: map[string]any{
			"elapsed_ms": time.Since(startTime).Milliseconds(),
		},
	}
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.AdditionalData["error"] = err.Error()
	} else {
		entry.Outcome = audit.OutcomeSuccess
		entry.AdditionalData["candidates"] = len(result.Candidates)
	}
	if auditErr := s.audit.Record(ctx, entry); auditErr != nil {
		s.logger.Warn("failed to record diagnosis audit entry", zap.Error(auditErr))
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *DiagnosisService) recordArchive(ctx context.Context, blobName string, err error, meta RequestMeta) {
	entry := audit.Entry{
		OperationType:  audit.OperationCreate,
		ResourceType:   audit.ResourceIntakeArchive,
		ResourceID:     blobName,
		Outcome:        audit.OutcomeSuccess,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		AdditionalData: map[string]any{"encrypted": s.archive.Encrypted()},
	}
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.AdditionalData["error"] = err.Error()
	}
	if auditErr := s.audit.Record(ctx, entry); auditErr != nil {
		s.logger.Warn("failed to record archive audit entry", zap.Error(auditErr))
	}
}

func (s *DiagnosisService) analyze(ctx context.Context, patient map[string]any) (*model.DiagnosisResult, error) {
	intake, err := json.MarshalIndent(patient, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode intake: %w", err)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(buildDiagnosisPrompt(string(intake))),
	}

	response, err := s.completer.Complete(ctx, messages)
	if err != nil {
		s.logger.Error("AI diagnosis failed", zap.Error(err))
		return nil, fmt.Errorf("AI diagnosis failed: %w", err)
	}

	result, err := s.parseDiagnosisResponse(response)
	if err != nil {
		s.logger.Error("failed to parse diagnosis response",
			zap.Error(err),
			zap.Int("response_length", len(response)),
		)
		return nil, err
	}

	s.logger.Info("diagnosis completed",
		zap.Int("candidates", len(result.Candidates)),
	)
	return result, nil
}

func buildDiagnosisPrompt(intake string) string {
	return fmt.Sprintf(`You are a medical assistant. Here is a patient's intake information:
%s

1. Structure the patient details as a JSON object under the key "patient_details".
2. Based on the provided information, search for rare diseases that match the patient's symptoms and history.
3. For the top %d most likely rare diseases, return an array under the key "top_rare_diseases", ordered from most to least likely. Each entry has:
   - "disease_name": string
   - "score": likelihood from 1 to 100
   - "description": string
   - "disease_overview": string
   - "symptoms": array of strings
   - "clinical_significance": string
   - "causes": string
   - "related_disorders": array of strings (disorders with similar symptoms)
   - "diagnosis": array of strings (diagnostic steps)
   - "treatment": array of strings
   - "clinical_trials": string
   - "key_aspects": string
4. Return a single JSON object with the keys "patient_details" and "top_rare_diseases".

IMPORTANT: Do NOT include any reasoning, explanation, <think> tags, or any text before or after the JSON. ONLY return the JSON object.`, intake, TopCandidates)
}

// rawCandidate is the lenient shape of one model-produced candidate
type rawCandidate struct {
	DiseaseName          model.FlexString  `json:"disease_name"`
	Score                model.FlexScore   `json:"score"`
	Description          model.FlexString  `json:"description"`
	DiseaseOverview      model.FlexString  `json:"disease_overview"`
	Overview             model.FlexString  `json:"overview"`
	Symptoms             model.FlexStrings `json:"symptoms"`
	SignsSymptoms        model.FlexStrings `json:"signs_symptoms"`
	ClinicalSignificance model.FlexString  `json:"clinical_significance"`
	Causes               model.FlexString  `json:"causes"`
	RelatedDisorders     model.FlexStrings `json:"related_disorders"`
	Diagnosis            model.FlexStrings `json:"diagnosis"`
	Treatment            model.FlexStrings `json:"treatment"`
	ClinicalTrials       model.FlexString  `json:"clinical_trials"`
	KeyAspects           model.FlexString  `json:"key_aspects"`
}

type rawDiagnosis struct {
	PatientDetails map[string]any `json:"patient_details"`
	Candidates     []rawCandidate `json:"top_rare_diseases"`
}

// parseDiagnosisResponse parses the model answer into a DiagnosisResult
func (s *DiagnosisService) parseDiagnosisResponse(response string) (*model.DiagnosisResult, error) {
	cleaned := cleanModelOutput(response)

	var raw rawDiagnosis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableAnswer, err)
	}
	if raw.Candidates == nil {
		return nil, fmt.Errorf("%w: top_rare_diseases is missing", ErrUnparsableAnswer)
	}

	return s.normalizeDiagnosis(raw), nil
}

// normalizeDiagnosis validates and normalizes the parsed answer
func (s *DiagnosisService) normalizeDiagnosis(raw rawDiagnosis) *model.DiagnosisResult {
	result := &model.DiagnosisResult{
		PatientDetails: raw.PatientDetails,
		Candidates:     make([]model.Candidate, 0, len(raw.Candidates)),
	}
	if result.PatientDetails == nil {
		result.PatientDetails = map[string]any{}
	}

	for i, rc := range raw.Candidates {
		name := strings.TrimSpace(string(rc.DiseaseName))
		if name == "" {
			s.logger.Warn("dropping candidate without a disease name", zap.Int("position", i))
			continue
		}

		c := model.Candidate{
			DiseaseName:          name,
			Description:          string(rc.Description),
			Overview:             firstNonEmpty(string(rc.DiseaseOverview), string(rc.Overview)),
			Score:                s.clampScore(name, float64(rc.Score)),
			Symptoms:             nonNil(firstNonEmptyList(rc.Symptoms, rc.SignsSymptoms)),
			DiagnosisSteps:       nonNil(rc.Diagnosis),
			Treatments:           nonNil(rc.Treatment),
			RelatedDisorders:     nonNil(rc.RelatedDisorders),
			Causes:               string(rc.Causes),
			ClinicalSignificance: string(rc.ClinicalSignificance),
			ClinicalTrials:       string(rc.ClinicalTrials),
			KeyAspects:           string(rc.KeyAspects),
		}
		result.Candidates = append(result.Candidates, c)
	}

	return result
}

func (s *DiagnosisService) clampScore(disease string, score float64) float64 {
	switch {
	case math.IsNaN(score):
		s.logger.Warn("score is not a number, setting to 0", zap.String("disease", disease))
		return model.MinScore
	case score < model.MinScore:
		s.logger.Warn("score below 0, setting to 0", zap.String("disease", disease), zap.Float64("score", score))
		return model.MinScore
	case score > model.MaxScore:
		s.logger.Warn("score above 100, setting to 100", zap.String("disease", disease), zap.Float64("score", score))
		return model.MaxScore
	default:
		return score
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptyList(lists ...model.FlexStrings) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
