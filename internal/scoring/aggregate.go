// Package scoring recomputes candidate totals from section scores and reviewer weights.
package scoring

import (
	"github.com/spigell/cv-ranker/internal/ranking"
)

// Aggregate returns the weighted sum of section scores, with weights given in percent.
// Sections without a weight contribute nothing.
func Aggregate(sectionScores map[string]float64, weights map[string]float64) float64 {
	var total float64
	for section, score := range sectionScores {
		total += score * weights[section] / 100
	}
	return total
}

// Recompute refreshes the total score of every candidate in the batch.
// Algorithmic decisions are kept as computed by the matching service.
func Recompute(batch *ranking.Batch, weights WeightSet) {
	if batch == nil {
		return
	}
	for _, item := range batch.Items {
		item.TotalScore = Aggregate(item.SectionScores, weights)
	}
}
