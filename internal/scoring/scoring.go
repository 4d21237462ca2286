// Package scoring normalizes validated factor scores into the overall
// viability score when the provider did not supply one.
package scoring

import (
	"math"

	"go.uber.org/zap"

	"github.com/feasai/viability-engine/internal/model"
)

// Aggregator computes weighted overall scores from per-factor weights.
type Aggregator struct {
	weights map[model.FactorKind]float64
}

// New builds an aggregator from the configured weight map. Keys are factor
// names; unknown names are kept as-is and simply never match a requested
// factor.
func New(weights map[string]float64) *Aggregator {
	w := make(map[model.FactorKind]float64, len(weights))
	for k, v := range weights {
		w[model.FactorKind(k)] = v
	}
	return &Aggregator{weights: w}
}

// Overall computes the weighted mean of the factor scores, rounded half-up
// to the nearest integer. Factors missing from the weight map contribute
// weight 0 and are excluded from the mean, with a logged warning. When every
// factor has zero weight the plain arithmetic mean is used instead.
func (a *Aggregator) Overall(scores []model.FactorScore) float64 {
	if len(scores) == 0 {
		return 0
	}

	var weighted, totalWeight float64
	for _, fs := range scores {
		w, ok := a.weights[fs.Factor]
		if !ok {
			zap.L().Warn("scoring: factor has no configured weight, excluded from overall",
				zap.String("factor", string(fs.Factor)),
			)
			continue
		}
		weighted += w * fs.Value
		totalWeight += w
	}

	if totalWeight == 0 {
		var sum float64
		for _, fs := range scores {
			sum += fs.Value
		}
		return roundHalfUp(sum / float64(len(scores)))
	}

	return roundHalfUp(weighted / totalWeight)
}

// roundHalfUp rounds to the nearest integer with halves going up, so
// results stay reproducible across implementations.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
