package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"  text "`, "text"},
		{`["NCT01", "NCT02"]`, "NCT01; NCT02"},
		{`null`, ""},
		{`42`, "42"},
	}

	for _, tt := range tests {
		var got FlexString
		require.NoError(t, json.Unmarshal([]byte(tt.in), &got), tt.in)
		assert.Equal(t, tt.want, string(got), tt.in)
	}

	var bad FlexString
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &bad))
}

func TestFlexStrings(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`["MRI", " ", "genetic testing"]`, []string{"MRI", "genetic testing"}},
		{`"MRI; genetic testing"`, []string{"MRI", "genetic testing"}},
		{`"- rest\n- hydration"`, []string{"rest", "hydration"}},
		{`""`, []string{}},
		{`[1, "two"]`, []string{"1", "two"}},
	}

	for _, tt := range tests {
		var got FlexStrings
		require.NoError(t, json.Unmarshal([]byte(tt.in), &got), tt.in)
		assert.Equal(t, tt.want, []string(got), tt.in)
	}

	var null FlexStrings
	require.NoError(t, json.Unmarshal([]byte(`null`), &null))
	assert.Nil(t, null)

	var bad FlexStrings
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestFlexScore(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`92`, 92},
		{`87.5`, 87.5},
		{`"92"`, 92},
		{`"75%"`, 75},
		{`null`, 0},
	}

	for _, tt := range tests {
		var got FlexScore
		require.NoError(t, json.Unmarshal([]byte(tt.in), &got), tt.in)
		assert.Equal(t, tt.want, float64(got), tt.in)
	}

	var bad FlexScore
	assert.Error(t, json.Unmarshal([]byte(`"high"`), &bad))
}

func TestCandidate_UnmarshalJSON_Lenient(t *testing.T) {
	var c Candidate
	require.NoError(t, json.Unmarshal([]byte(`{
		"disease_name": " Fabry disease ",
		"score": "88%",
		"diagnosis": "enzyme assay; GLA sequencing",
		"treatment": ["enzyme replacement therapy"],
		"clinical_trials": ["NCT01", "NCT02"],
		"key_aspects": ["X-linked", "lysosomal"]
	}`), &c))

	assert.Equal(t, "Fabry disease", c.DiseaseName)
	assert.Equal(t, 88.0, c.Score)
	assert.Equal(t, []string{"enzyme assay", "GLA sequencing"}, c.DiagnosisSteps)
	assert.Equal(t, []string{"enzyme replacement therapy"}, c.Treatments)
	assert.Equal(t, "NCT01; NCT02", c.ClinicalTrials)
	assert.Equal(t, "X-linked; lysosomal", c.KeyAspects)
	assert.Nil(t, c.Symptoms)

	var bad Candidate
	assert.Error(t, json.Unmarshal([]byte(`{"disease_name": {"x": 1}}`), &bad))
}

func TestCandidate_RoundTrip(t *testing.T) {
	in := Candidate{
		DiseaseName:    "Erythromelalgia",
		Score:          41,
		DiagnosisSteps: []string{"clinical history"},
		ClinicalTrials: "NCT0001",
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Candidate
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.DiseaseName, out.DiseaseName)
	assert.Equal(t, in.Score, out.Score)
	assert.Equal(t, in.DiagnosisSteps, out.DiagnosisSteps)
	assert.Equal(t, in.ClinicalTrials, out.ClinicalTrials)
}
