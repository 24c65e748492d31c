package domain

// ClassificationResult is the normalized outcome of classifying one
// message. Embedded into MessageRecord with the analysis_ prefix.
type ClassificationResult struct {
	Category       string `gorm:"type:varchar(32)" json:"category"`
	Summary        string `gorm:"type:text" json:"summary"`
	Sentiment      string `gorm:"type:varchar(16)" json:"sentiment"`
	SuggestedLabel string `gorm:"type:varchar(64)" json:"suggestedLabel"`
}

const CategoryOther = "Other"

// Categories is the closed set of accepted categories.
var Categories = []string{
	"Work", "Personal", "Finance", "Shopping",
	"Travel", "Newsletters", "Social", CategoryOther,
}

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// MaxLabelLength bounds suggested label names.
const MaxLabelLength = 40

func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func ValidSentiment(s string) bool {
	return s == SentimentPositive || s == SentimentNegative || s == SentimentNeutral
}
