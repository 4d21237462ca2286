package model

// Category is the topical classification assigned to an analysis request.
type Category string

const (
	CategoryAutomation        Category = "automation"
	CategoryDataAnalysis      Category = "data_analysis"
	CategoryTextProcessing    Category = "text_processing"
	CategoryVision            Category = "vision"
	CategorySpeech            Category = "speech"
	CategoryContentGeneration Category = "content_generation"
	CategoryRecommendation    Category = "recommendation"
	CategoryOptimization      Category = "optimization"
	CategoryAssistants        Category = "assistants"
)

// KnownCategories lists every category the classifier can assign.
var KnownCategories = []Category{
	CategoryAutomation,
	CategoryDataAnalysis,
	CategoryTextProcessing,
	CategoryVision,
	CategorySpeech,
	CategoryContentGeneration,
	CategoryRecommendation,
	CategoryOptimization,
	CategoryAssistants,
}

// KnownCategory reports whether c is in the recognized category set.
func KnownCategory(c Category) bool {
	for _, k := range KnownCategories {
		if k == c {
			return true
		}
	}
	return false
}
