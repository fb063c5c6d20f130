package strategy

import (
	"fmt"

	"SizingSignal/internal/model"
)

// DefaultWeights scale the features in model.FeatureNames order.
var DefaultWeights = model.Weights{0.05, 0.05, 0.10, 0.10, 0.10, 0.05, 0.10, 0.45}

// Engine turns feature vectors into investment amounts.
type Engine struct {
	Weights  model.Weights
	Composer *Composer
}

// NewEngine creates an Engine with the given weights and the default composer.
func NewEngine(weights model.Weights) *Engine {
	return &Engine{Weights: weights, Composer: NewComposer()}
}

// Score is the weighted feature sum.
func (e *Engine) Score(fv model.FeatureVector) float64 {
	total := 0.0
	for i := range fv {
		total += e.Weights[i] * fv[i]
	}
	return total
}

// Size returns the suggested investment: weighted sum × position value. The result is
// not clamped.
func (e *Engine) Size(fv model.FeatureVector, positionValue float64) float64 {
	return e.Score(fv) * positionValue
}

// Contributions breaks the score down per feature.
func (e *Engine) Contributions(fv model.FeatureVector) []model.FeatureContribution {
	out := make([]model.FeatureContribution, model.FeatureCount)
	for i := range fv {
		out[i] = model.FeatureContribution{
			Name:     model.FeatureNames[i],
			Raw:      fv[i],
			Weight:   e.Weights[i],
			Weighted: e.Weights[i] * fv[i],
		}
	}
	return out
}

// Evaluate composes and sizes every horizon present in the snapshot.
func (e *Engine) Evaluate(s *Snapshot, positionValue float64) (map[model.Horizon]model.FeatureVector, map[model.Horizon]float64, error) {
	features := make(map[model.Horizon]model.FeatureVector, len(model.Horizons))
	investments := make(map[model.Horizon]float64, len(model.Horizons))
	for _, h := range model.Horizons {
		fv, err := e.Composer.Compose(h, s)
		if err != nil {
			return nil, nil, fmt.Errorf("%s features: %w", h, err)
		}
		features[h] = fv
		investments[h] = e.Size(fv, positionValue)
	}
	return features, investments, nil
}
