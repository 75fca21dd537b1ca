// Package analysis classifies complaints by urgency and derives the follow-up
// recommendation for each category.
package analysis

import (
	"complaintbot/backend/internal/models"
	"strings"
)

// Keyword lists are matched as lower-case substrings of the description.
var (
	dangerKeywords = []string{
		"апат", "қауіпті", "денсаулыққа", "угроза",
		"авария", "опасно", "здоровь",
		"danger", "accident", "health", "threat",
	}
	frequencyKeywords = []string{
		"үнемі", "жиі", "күнде", "постоянно", "всегда",
		"часто", "каждый день",
		"constant", "frequent", "always", "every day",
	}
)

// Classify maps a description and its category to a severity tier.
// The checks run in a fixed order and the first match wins: danger keywords,
// then frequency keywords, then the category default.
func Classify(description string, aspect models.Aspect) models.Severity {
	text := strings.ToLower(description)
	if containsAny(text, dangerKeywords) {
		return models.SeverityUrgent
	}
	if containsAny(text, frequencyKeywords) {
		return models.SeverityHigh
	}
	if aspect != models.AspectOther && aspect != models.AspectTimeliness {
		return models.SeverityMedium
	}
	return models.SeverityLow
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Recommend returns the recommended follow-up for the category.
// Unknown categories get the recommendation for AspectOther.
func Recommend(aspect models.Aspect) string {
	switch aspect {
	case models.AspectConduct:
		return "Strengthen motivational and briefing work with drivers and conductors."
	case models.AspectTimeliness:
		return "Increase the number of buses on this route or revise the timetable."
	case models.AspectCrowding:
		return "Add extra high-capacity buses to the route during peak hours."
	case models.AspectVehicleCondition:
		return "Inspect the sanitary and technical condition of the bus fleet immediately."
	case models.AspectSafety:
		return "Hold additional safe-driving instruction for drivers."
	case models.AspectPayment:
		return "Check the payment terminals and fix the faults."
	default:
		return "Run an additional inspection to clarify the situation."
	}
}
