package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string, a list of strings (joined with "; "),
// a number or null
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}

	var list FlexStrings
	if err := json.Unmarshal(data, &list); err == nil {
		*f = FlexString(strings.Join(list, "; "))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	return fmt.Errorf("expected string or list of strings, got %s", data)
}

// FlexStrings accepts a JSON list of strings or a single string. A single
// string is split on newlines and semicolons.
type FlexStrings []string

func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			var s FlexString
			if err := json.Unmarshal(item, &s); err != nil {
				return err
			}
			if s != "" {
				out = append(out, string(s))
			}
		}
		*f = out
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected list of strings or string, got %s", data)
	}

	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == ';' }) {
		part = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "-*•"))
		if part != "" {
			out = append(out, part)
		}
	}
	*f = out
	return nil
}

// FlexScore accepts a number or a numeric string such as "92" or "92%"
type FlexScore float64

func (f *FlexScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexScore(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected numeric score, got %s", data)
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return fmt.Errorf("expected numeric score, got %q", s)
	}
	*f = FlexScore(n)
	return nil
}

// UnmarshalJSON decodes a candidate leniently: list fields may arrive as a
// single string and text fields as a list, as diagnosis services disagree on
// the shape of clinical_trials and key_aspects.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw struct {
		DiseaseName          FlexString  `json:"disease_name"`
		Description          FlexString  `json:"description"`
		Overview             FlexString  `json:"disease_overview"`
		Score                FlexScore   `json:"score"`
		Symptoms             FlexStrings `json:"symptoms"`
		DiagnosisSteps       FlexStrings `json:"diagnosis"`
		Treatments           FlexStrings `json:"treatment"`
		RelatedDisorders     FlexStrings `json:"related_disorders"`
		Causes               FlexString  `json:"causes"`
		ClinicalSignificance FlexString  `json:"clinical_significance"`
		ClinicalTrials       FlexString  `json:"clinical_trials"`
		KeyAspects           FlexString  `json:"key_aspects"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Candidate{
		DiseaseName:          string(raw.DiseaseName),
		Description:          string(raw.Description),
		Overview:             string(raw.Overview),
		Score:                float64(raw.Score),
		Symptoms:             raw.Symptoms,
		DiagnosisSteps:       raw.DiagnosisSteps,
		Treatments:           raw.Treatments,
		RelatedDisorders:     raw.RelatedDisorders,
		Causes:               string(raw.Causes),
		ClinicalSignificance: string(raw.ClinicalSignificance),
		ClinicalTrials:       string(raw.ClinicalTrials),
		KeyAspects:           string(raw.KeyAspects),
	}
	return nil
}
