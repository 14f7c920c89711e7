package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// Templates use {{document}} for the source text and {{context}} for prior step output.
const (
	// PromptClassify asks for a risk verdict on raw document text.
	PromptClassify = "classify"

	// PromptExtraction extracts parties, dates, amounts and key clauses.
	PromptExtraction = "extraction"

	// PromptRisk assesses risk from the extraction.
	PromptRisk = "risk"

	// PromptCompliance checks regulatory compliance from the extraction.
	PromptCompliance = "compliance"

	// PromptNegotiation proposes negotiation points.
	PromptNegotiation = "negotiation"

	// PromptAction derives action items and next steps.
	PromptAction = "action"
)

// AllPrompts returns every well-known prompt name.
func AllPrompts() []string {
	return []string{
		PromptClassify,
		PromptExtraction,
		PromptRisk,
		PromptCompliance,
		PromptNegotiation,
		PromptAction,
	}
}
