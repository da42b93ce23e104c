package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/intake"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/model"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL+"/", time.Second, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient("", time.Second, zap.NewNop())
	assert.Error(t, err)
}

func TestClient_Diagnose_Success(t *testing.T) {
	var got model.DiagnosisRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DiagnosePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": {
				"patient_details": {"name": "Ada", "age": 36},
				"top_rare_diseases": [
					{"disease_name": "DiseaseB", "score": 91, "diagnosis": ["MRI"], "treatment": ["rest"], "related_disorders": []},
					{"disease_name": "DiseaseA", "score": 77, "clinical_trials": "NCT0001"}
				]
			}
		}`))
	})

	req := intake.BuildRequest(intake.Answers{"name": "Ada", "age": "36", "symptoms": "fatigue"})
	result, err := client.Diagnose(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req, got)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "DiseaseB", result.Candidates[0].DiseaseName)
	assert.Equal(t, 91.0, result.Candidates[0].Score)
	assert.Equal(t, []string{"MRI"}, result.Candidates[0].DiagnosisSteps)
	assert.Equal(t, "DiseaseA", result.Candidates[1].DiseaseName)
	assert.Equal(t, "NCT0001", result.Candidates[1].ClinicalTrials)
	assert.Equal(t, "Ada", result.PatientDetails["name"])
}

func TestClient_Diagnose_ListShapedTextFields(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "data": {
			"patient_details": {"name": "Ada"},
			"top_rare_diseases": [
				{"disease_name": "B", "score": 91, "clinical_trials": ["NCT1"], "key_aspects": ["x"]},
				{"disease_name": "C", "score": "64", "diagnosis": "MRI; biopsy", "clinical_trials": null}
			]
		}}`))
	})

	result, err := client.Diagnose(context.Background(), model.DiagnosisRequest{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "NCT1", result.Candidates[0].ClinicalTrials)
	assert.Equal(t, "x", result.Candidates[0].KeyAspects)
	assert.Equal(t, 91.0, result.Candidates[0].Score)
	assert.Equal(t, 64.0, result.Candidates[1].Score)
	assert.Equal(t, []string{"MRI", "biopsy"}, result.Candidates[1].DiagnosisSteps)
	assert.Empty(t, result.Candidates[1].ClinicalTrials)
}

func TestClient_Diagnose_ClampsScore(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": {"top_rare_diseases": [
			{"disease_name": "High", "score": 140},
			{"disease_name": "Low", "score": -3},
			{"disease_name": "Fine", "score": 55.5}
		]}}`))
	})

	result, err := client.Diagnose(context.Background(), model.DiagnosisRequest{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Candidates[0].Score)
	assert.Equal(t, 0.0, result.Candidates[1].Score)
	assert.Equal(t, 55.5, result.Candidates[2].Score)
}

func TestClient_Diagnose_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind intake.FailureKind
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"Diagnosis failed"}`, intake.FailureStatus},
		{"not found", http.StatusNotFound, ``, intake.FailureStatus},
		{"success false", http.StatusOK, `{"success": false, "message": "Diagnosis failed"}`, intake.FailurePayload},
		{"missing data", http.StatusOK, `{"success": true}`, intake.FailurePayload},
		{"not json", http.StatusOK, `<html>oops</html>`, intake.FailurePayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Diagnose(context.Background(), model.DiagnosisRequest{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, intake.ErrSubmission))

			var se *intake.SubmissionError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantKind, se.Kind)
		})
	}
}

func TestClient_Diagnose_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := NewClient(url, time.Second, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Diagnose(context.Background(), model.DiagnosisRequest{})
	var se *intake.SubmissionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, intake.FailureTransport, se.Kind)
}

func TestClient_Diagnose_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client, err := NewClient(srv.URL, 50*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Diagnose(context.Background(), model.DiagnosisRequest{})
	var se *intake.SubmissionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, intake.FailureTransport, se.Kind)
}
