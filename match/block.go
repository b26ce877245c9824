package match

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/matchd/account"
	"github.com/kasuganosora/matchd/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Block records that blockerID blocks targetID. Blocking is idempotent and
// leaves the interaction ledger untouched. For an automated target the
// blocker's side of their channel is marked blocked.
func (e *Engine) Block(ctx context.Context, blockerID, targetID int64) (*BlockResult, error) {
	start := time.Now()
	var res *BlockResult
	err := checkPair(blockerID, targetID)
	if err == nil {
		err = e.inTx(ctx, "block", func(tx *gorm.DB) error {
			r, err := e.block(tx, blockerID, targetID)
			res = r
			return err
		})
	}
	e.observe("block", start, err)
	return res, err
}

func (e *Engine) block(tx *gorm.DB, blockerID, targetID int64) (*BlockResult, error) {
	target, err := e.target(tx, targetID, true)
	if err != nil {
		return nil, err
	}
	created, err := ensureBlock(tx, blockerID, targetID)
	if err != nil {
		return nil, err
	}
	if target.IsBot() {
		if _, err := e.channels.SetSideStatus(tx, blockerID, targetID, model.ChannelBlocked); err != nil {
			return nil, err
		}
	}
	e.logger.Debug("block applied",
		zap.Int64("blocker_id", blockerID),
		zap.Int64("target_id", targetID),
		zap.Bool("created", created))
	return &BlockResult{TargetID: targetID, TargetType: target.Kind, Blocked: true}, nil
}

// Unblock removes blockerID's block on targetID. Unblocking a pair that is
// not blocked succeeds. For an automated target the blocker's side of their
// channel goes back to active.
func (e *Engine) Unblock(ctx context.Context, blockerID, targetID int64) (*BlockResult, error) {
	start := time.Now()
	var res *BlockResult
	err := checkPair(blockerID, targetID)
	if err == nil {
		err = e.inTx(ctx, "unblock", func(tx *gorm.DB) error {
			r, err := e.unblock(tx, blockerID, targetID)
			res = r
			return err
		})
	}
	e.observe("unblock", start, err)
	return res, err
}

func (e *Engine) unblock(tx *gorm.DB, blockerID, targetID int64) (*BlockResult, error) {
	if err := tx.Where("blocked_id = ? AND blocker_id = ?", targetID, blockerID).
		Delete(&model.Block{}).Error; err != nil {
		return nil, err
	}
	res := &BlockResult{TargetID: targetID, Blocked: false}

	// The block row goes regardless; the target only matters for the
	// channel side status.
	target, err := e.accounts.Get(tx, targetID, false)
	if errors.Is(err, account.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	res.TargetType = target.Kind
	if target.IsBot() {
		if _, err := e.channels.SetSideStatus(tx, blockerID, targetID, model.ChannelActive); err != nil {
			return nil, err
		}
	}
	e.logger.Debug("unblock applied",
		zap.Int64("blocker_id", blockerID),
		zap.Int64("target_id", targetID))
	return res, nil
}

// ensureBlock finds or creates the block row under lock. Losing an insert
// race to a concurrent block of the same pair counts as success.
func ensureBlock(tx *gorm.DB, blockerID, blockedID int64) (bool, error) {
	var existing model.Block
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("blocked_id = ? AND blocker_id = ?", blockedID, blockerID).
		Take(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	err = tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(&model.Block{BlockedID: blockedID, BlockerID: blockerID}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return err == nil, err
}

// IsBlocked reports whether blockerID currently blocks targetID.
func (e *Engine) IsBlocked(ctx context.Context, blockerID, targetID int64) (bool, error) {
	var n int64
	err := e.db.WithContext(ctx).Model(&model.Block{}).
		Where("blocked_id = ? AND blocker_id = ?", targetID, blockerID).
		Count(&n).Error
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}
