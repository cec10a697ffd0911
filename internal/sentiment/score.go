package sentiment

import (
	"sync"

	"github.com/jonreiter/govader"
)

var analyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Score returns the VADER compound polarity of text, in [-1, 1].
// Text without any rated words scores 0.
func Score(text string) float64 {
	return analyzer().PolarityScores(text).Compound
}
