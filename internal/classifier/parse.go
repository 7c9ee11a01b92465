package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

var (
	errEmptyOutput   = errors.New("classifier: empty model output")
	errNoJSONObject  = errors.New("classifier: no json object in model output")
	errUnknownSchema = errors.New("classifier: json object has none of the expected fields")
)

type rawContext struct {
	Summary         string `json:"summary"`
	RiskExplanation string `json:"riskExplanation"`
	SafetyAdvice    string `json:"safetyAdvice"`
}

type rawPolicy struct {
	SelectedLevelReason      string     `json:"selectedLevelReason"`
	RequiredSkillLevel       flexNumber `json:"requiredSkillLevel"`
	MinExperienceYears       flexNumber `json:"minExperienceYears"`
	RequiresCertification    flexBool   `json:"requiresCertification"`
	RequiresSeniorTechnician flexBool   `json:"requiresSeniorTechnician"`
	RiskWeight               flexNumber `json:"riskWeight"`
}

type rawOutput struct {
	ContextDescription *rawContext `json:"contextDescription"`
	DispatchPolicy     *rawPolicy  `json:"dispatchPolicy"`
	UrgencyLevel       *flexNumber `json:"urgencyLevel"`
}

// parseOutput normalizes raw model text into a Result. Field names match case-insensitively.
func parseOutput(raw string) (Result, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return Result{}, err
	}

	var out rawOutput
	if err := json.Unmarshal(payload, &out); err != nil {
		return Result{}, err
	}
	if out.ContextDescription == nil && out.DispatchPolicy == nil && out.UrgencyLevel == nil {
		return Result{}, errUnknownSchema
	}

	result := Result{RequiredSkillLevel: domain.MinLevel, UrgencyLevel: domain.MinLevel}
	if c := out.ContextDescription; c != nil {
		result.Summary = strings.TrimSpace(c.Summary)
		result.RiskExplanation = strings.TrimSpace(c.RiskExplanation)
		result.SafetyAdvice = strings.TrimSpace(c.SafetyAdvice)
	}
	if p := out.DispatchPolicy; p != nil {
		result.SelectedLevelReason = strings.TrimSpace(p.SelectedLevelReason)
		result.RequiredSkillLevel = domain.ClampLevel(p.RequiredSkillLevel.Int())
		result.MinExperienceYears = max(0, p.MinExperienceYears.Int())
		result.RequiresCertification = bool(p.RequiresCertification)
		result.RequiresSeniorTechnician = bool(p.RequiresSeniorTechnician)
		result.RiskWeight = math.Max(0, float64(p.RiskWeight))
	}
	if out.UrgencyLevel != nil {
		result.UrgencyLevel = domain.ClampLevel(out.UrgencyLevel.Int())
	}
	return result, nil
}

// extractJSON strips markdown fences and any prose around the outermost object.
func extractJSON(raw string) ([]byte, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return nil, errEmptyOutput
	}
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if nl := strings.IndexByte(content, '\n'); nl >= 0 && !strings.Contains(content[:nl], "{") {
			content = content[nl+1:]
		} else {
			content = strings.TrimPrefix(content, "json")
		}
		content = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(content), "```"))
	}

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return nil, errNoJSONObject
	}
	return bytes.TrimSpace([]byte(content[start : end+1])), nil
}

// flexNumber accepts JSON numbers and numeric strings.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = flexNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

// Int rounds to the nearest integer, saturating at the int32 range so huge
// values keep their sign instead of wrapping. NaN reads as 0.
func (n flexNumber) Int() int {
	v := float64(n)
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(math.MinInt32, math.Min(math.MaxInt32, v))
	return int(math.Round(v))
}

// flexBool accepts JSON booleans and "true"/"false" strings.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*b = flexBool(v)
	return nil
}
