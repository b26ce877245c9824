package match

import (
	"github.com/kasuganosora/matchd/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// edgePair holds the two directed ledger rows of a pair as read under lock.
// Either may be nil when that direction has never been recorded.
type edgePair struct {
	forward *model.Interaction // actor -> target
	reverse *model.Interaction // target -> actor
}

func (p *edgePair) forwardAction() string {
	if p.forward == nil {
		return ""
	}
	return p.forward.Action
}

func (p *edgePair) reverseAction() string {
	if p.reverse == nil {
		return ""
	}
	return p.reverse.Action
}

// lockEdges reads and locks both directions of (actorID, targetID) in one
// statement, so concurrent calls on the same pair acquire the rows in the
// same index order whichever side they start from.
func lockEdges(tx *gorm.DB, actorID, targetID int64) (*edgePair, error) {
	var rows []model.Interaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("(actor_id = ? AND target_id = ?) OR (actor_id = ? AND target_id = ?)",
			actorID, targetID, targetID, actorID).
		Order("actor_id, target_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	p := &edgePair{}
	for i := range rows {
		if rows[i].ActorID == actorID {
			p.forward = &rows[i]
		} else {
			p.reverse = &rows[i]
		}
	}
	return p, nil
}

// writeEdge moves a directed row to (action, mutual), inserting it when the
// pair has no row in that direction yet. Only action, mutual and updated_at
// are ever overwritten; the row id and creation time are preserved.
func writeEdge(tx *gorm.DB, existing *model.Interaction, actorID, targetID int64, action string, mutual bool) (*model.Interaction, error) {
	if existing != nil {
		err := tx.Model(existing).Updates(map[string]interface{}{
			"action": action,
			"mutual": mutual,
		}).Error
		if err != nil {
			return nil, err
		}
		existing.Action = action
		existing.Mutual = mutual
		return existing, nil
	}
	row := &model.Interaction{
		ActorID:  actorID,
		TargetID: targetID,
		Action:   action,
		Mutual:   mutual,
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// writeMatch records a mutual match in both directions. It is the only code
// path that produces action=match, keeping the two rows of a match in step.
func writeMatch(tx *gorm.DB, p *edgePair, actorID, targetID int64) error {
	fwd, err := writeEdge(tx, p.forward, actorID, targetID, model.ActionMatch, true)
	if err != nil {
		return err
	}
	rev, err := writeEdge(tx, p.reverse, targetID, actorID, model.ActionMatch, true)
	if err != nil {
		return err
	}
	p.forward, p.reverse = fwd, rev
	return nil
}
