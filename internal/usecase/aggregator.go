package usecase

import (
	"time"

	"SemaforoBot/internal/domain/models"
)

// Aggregator folds per-asset assessments into one semaphore state.
type Aggregator struct{}

func NewAggregator() Aggregator { return Aggregator{} }

// Aggregate applies worst-color-wins over the given assessments. Order does
// not matter. An empty input is an error: a semaphore with no assets behind
// it would be misleading rather than neutral.
func (Aggregator) Aggregate(assessments []*models.RiskAssessment, params *models.RiskParams) (*models.SemaphoreState, error) {
	if len(assessments) == 0 {
		return nil, models.ErrNoAssets
	}

	worst := models.ColorGreen
	assets := make(map[string]models.RiskAssessment, len(assessments))
	for _, a := range assessments {
		assets[a.Asset] = *a
		if a.Color.Severity() > worst.Severity() {
			worst = a.Color
		}
	}

	rec, ok := params.Recommendations[worst]
	if !ok {
		rec = "No recommendation available."
	}
	return &models.SemaphoreState{
		Color:          worst,
		Emoji:          worst.Emoji(),
		Assets:         assets,
		Recommendation: rec,
		Timestamp:      time.Now().UTC(),
	}, nil
}
