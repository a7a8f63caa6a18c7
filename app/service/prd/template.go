package prd

import (
	"strings"

	_ "embed"
)

//go:embed template.md
var documentTemplate string

//go:embed system_prompt.txt
var systemPromptTemplate string

// Greeting is the first assistant message stored for every new session.
const Greeting = "Okay, I'm ready to help you build your PRD for 8090 Solutions. Here is the initial template. " +
	"To start, could you please tell me about the product idea? What core problem does it solve, " +
	"and who is the primary target audience?"

var initialPlaceholders = map[string]string{
	"product_name":               "[Product Name]",
	"date":                       "[Date]",
	"manager_name":               "[Manager Name]",
	"introduction_background":    "[Provide context, market landscape, etc.]",
	"introduction_problem":       "[Clearly state the problem this product solves or the need it fulfills]",
	"objectives_vision":          "[Describe the high-level, long-term vision for this product]",
	"objectives_goals":           "    *   Goal 1: (P_) [Describe SMART Goal]",
	"objectives_positioning":     "[How does this product fit in the market compared to competitors? Target segment?]",
	"objectives_metrics":         "[KPIs to measure success, e.g., adoption rate, user satisfaction, revenue]",
	"stakeholders_users":         "[Describe primary and secondary user personas]",
	"stakeholders_purchasers":    "[If different from users, e.g., IT admins]",
	"stakeholders_manufacturing": "[Relevant production teams/constraints]",
	"stakeholders_cs":            "[Support team requirements]",
	"stakeholders_marketing":     "[Go-to-market considerations]",
	"stakeholders_partners":      "[Any collaborators?]",
	"stakeholders_regulatory":    "[Compliance bodies?]",
	"use_cases_stories": "*   **Use Case 1: [Name]**\n" +
		"    *   *Actor:* [User type]\n" +
		"    *   *Goal:* [Objective]\n" +
		"    *   *Steps:* [Sequence]\n" +
		"*   **User Story 1:** As a [user type], I want to [action] so that [benefit]. (P_)",
	"hardware_priority":      "_",
	"hardware_reqs":          "    *   Requirement 1.1:",
	"software_priority":      "_",
	"software_reqs":          "    *   Requirement 2.1:",
	"design_priority":        "_",
	"design_reqs":            "    *   Requirement 3.1:",
	"ux_priority":            "_",
	"ux_reqs":                "    *   Requirement 4.1:",
	"customization_priority": "_",
	"customization_reqs":     "    *   Requirement 5.1:",
	"manufacturing_priority": "_",
	"manufacturing_reqs":     "    *   Requirement 6.1:",
	"compliance_priority":    "_",
	"compliance_reqs":        "    *   Requirement 7.1:",
	"open_questions":         "*   [List questions needing answers before finalization]",
	"milestone_concept":      "[Target Date]",
	"milestone_freeze":       "[Target Date]",
	"milestone_mfg":          "[Target Date]",
	"milestone_release":      "[Target Date]",
}

var (
	// InitialDocument is the blank PRD every session starts with.
	InitialDocument = fill(documentTemplate, initialPlaceholders)

	// SystemPrompt instructs the model about the two-part output contract.
	SystemPrompt = fill(systemPromptTemplate, map[string]string{
		"template":         documentTemplate,
		"initial_document": InitialDocument,
		"greeting":         Greeting,
	})
)

// fill substitutes {key} markers in a single pass, so values may contain markers of
// their own.
func fill(text string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{"+key+"}", value)
	}

	return strings.NewReplacer(pairs...).Replace(text)
}
