package classifier

import (
	"encoding/json"
	"strings"

	"github.com/spec-kit/dispatch-service/internal/rules"
)

const systemInstruction = "You are a strict logic mapper for a field-service dispatch desk. " +
	"You answer with exactly one JSON object and nothing else."

const outputShape = `{
  "contextDescription": {
    "summary": "...",
    "riskExplanation": "...",
    "safetyAdvice": "..."
  },
  "dispatchPolicy": {
    "selectedLevelReason": "the criteria matched from the rules",
    "requiredSkillLevel": number,
    "minExperienceYears": number,
    "requiresCertification": true|false,
    "requiresSeniorTechnician": true|false,
    "riskWeight": float
  },
  "urgencyLevel": number (1-5, where 4-5 = critical/urgent)
}`

// buildPrompt embeds the description and the rule profile the model must classify against.
func buildPrompt(description string, profile *rules.Profile) string {
	var sb strings.Builder
	sb.WriteString("Classify the service description into one of the levels defined in the rules.\n\n")

	sb.WriteString("### RULES (JSON):\n")
	if profile != nil {
		ruleJSON, err := json.MarshalIndent(profile, "", "  ")
		if err == nil {
			sb.Write(ruleJSON)
		}
	} else {
		sb.WriteString("{}")
	}

	sb.WriteString("\n\n### INPUT:\nDescription: ")
	quoted, _ := json.Marshal(description)
	sb.Write(quoted)

	sb.WriteString("\n\n### INSTRUCTIONS:\n")
	sb.WriteString("1. Scan the description for technical keywords.\n")
	sb.WriteString("2. Match them against the \"criteria\" of each level in the rules.\n")
	sb.WriteString("3. Copy minExperienceYears, requiresCertification, requiresSeniorTechnician and riskWeight exactly from the selected level.\n")
	sb.WriteString("4. Write contextDescription in the same language as the description.\n")
	sb.WriteString("5. Give safetyAdvice the customer can follow before the technician arrives; leave it empty if none applies.\n")

	sb.WriteString("\n### OUTPUT:\nReturn ONLY a JSON object. No preamble, no explanation outside the JSON.\n\n")
	sb.WriteString(outputShape)
	sb.WriteString("\n")
	return sb.String()
}
