package match

import (
	"context"

	"github.com/kasuganosora/matchd/model"
)

// RefreshGauges recounts matched pairs for the activeMatches gauge. Each
// pair is counted once through its row whose actor has the lower id. This is
// a monitoring read only; account counters are never derived from it.
func (e *Engine) RefreshGauges(ctx context.Context) (int64, error) {
	var n int64
	err := e.db.WithContext(ctx).Model(&model.Interaction{}).
		Where("action = ? AND mutual = ? AND actor_id < target_id", model.ActionMatch, true).
		Count(&n).Error
	if err != nil {
		return 0, classify(err)
	}
	activeMatches.Set(float64(n))
	return n, nil
}
