package report

import (
	"regexp"
	"strconv"
)

type Recommendation string

const (
	RecommendationBuy  Recommendation = "COMPRA"
	RecommendationHold Recommendation = "MANTER"
	RecommendationSell Recommendation = "VENDA"
)

// Valid reports whether r is one of the three accepted labels.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationBuy, RecommendationHold, RecommendationSell:
		return true
	}
	return false
}

// Fields are the summary values scraped from a generated report.
type Fields struct {
	Score          int            `json:"score"`
	Recommendation Recommendation `json:"recommendation"`
}

// Summary backs the highlighted cards shown next to a report.
type Summary struct {
	Score          int            `json:"score"`
	Recommendation Recommendation `json:"recommendation"`
	Model          string         `json:"model"`
}

const (
	minScore = 0
	maxScore = 10
)

var (
	// An integer score only: "7.5" and "8,5" do not match, "7." at the end of
	// a sentence does.
	scorePattern          = regexp.MustCompile(`\*\*NOTA \(0-10\):\*\*[ \t]*(\d{1,2})(?:$|[^\d.,]|[.,](?:$|\D))`)
	recommendationPattern = regexp.MustCompile(`\*\*RECOMENDAÇÃO:\*\*[ \t]*(COMPRA|MANTER|VENDA)(?:$|[^\p{L}])`)
)

// Extract finds the score and recommendation markers in a generated report.
// Both markers must be present and valid, otherwise ok is false. The report
// format is not guaranteed, so a miss is never an error.
func Extract(reportText string) (Fields, bool) {
	scoreMatch := scorePattern.FindStringSubmatch(reportText)
	if scoreMatch == nil {
		return Fields{}, false
	}
	score, err := strconv.Atoi(scoreMatch[1])
	if err != nil || score < minScore || score > maxScore {
		return Fields{}, false
	}

	recMatch := recommendationPattern.FindStringSubmatch(reportText)
	if recMatch == nil {
		return Fields{}, false
	}
	rec := Recommendation(recMatch[1])
	if !rec.Valid() {
		return Fields{}, false
	}
	return Fields{Score: score, Recommendation: rec}, true
}

// NewSummary pairs extracted fields with the model that produced the report.
func NewSummary(f Fields, model string) Summary {
	return Summary{Score: f.Score, Recommendation: f.Recommendation, Model: model}
}
