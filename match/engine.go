// Package match is the pairwise relationship engine: like, reject, block,
// unblock and match listing over the interaction ledger.
//
// Every call runs in one database transaction. Like and reject lock both
// account rows in id order, then both directed ledger rows of the pair are
// locked before they are read, and all derived effects
// (counters, channel provisioning, channel side status) are written in that
// same transaction. The only work done after commit is the best-effort
// match notification.
package match

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/matchd/account"
	"github.com/kasuganosora/matchd/config"
	"github.com/kasuganosora/matchd/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountStore is the engine's view of the account registry.
type AccountStore interface {
	Get(tx *gorm.DB, id int64, forUpdate bool) (*model.Account, error)
	Adjust(tx *gorm.DB, id int64, d account.Delta) error
	LockPair(tx *gorm.DB, a, b int64) (map[int64]*model.Account, error)
}

// ChannelProvider hands out the canonical channel of an account pair.
type ChannelProvider interface {
	GetOrCreate(tx *gorm.DB, a, b int64) (*model.Channel, error)
	SetSideStatus(tx *gorm.DB, selfID, otherID int64, status string) (bool, error)
}

// Notifier is told about matches after they are committed.
type Notifier interface {
	NotifyMatch(ctx context.Context, actorID, targetID, channelID int64) error
}

// LikeResult is the outcome of Like.
type LikeResult struct {
	TargetID   int64  `json:"target_id"`
	TargetType string `json:"target_type"`
	IsMatch    bool   `json:"is_match"`
	ChannelID  *int64 `json:"channel_id"`
}

// RejectResult is the outcome of Reject.
type RejectResult struct {
	TargetID   int64  `json:"target_id"`
	TargetType string `json:"target_type"`
}

// BlockResult is the outcome of Block and Unblock.
type BlockResult struct {
	TargetID   int64  `json:"target_id"`
	TargetType string `json:"target_type"`
	Blocked    bool   `json:"blocked"`
}

// Engine applies relationship transitions.
type Engine struct {
	db       *gorm.DB
	accounts AccountStore
	channels ChannelProvider
	notifier Notifier
	cfg      config.MatchingConfig
	logger   *zap.Logger
}

// NewEngine creates an Engine. notifier may be nil.
func NewEngine(
	db *gorm.DB,
	accounts AccountStore,
	channels ChannelProvider,
	notifier Notifier,
	cfg config.MatchingConfig,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		db:       db,
		accounts: accounts,
		channels: channels,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Like records that actorID likes targetID. A like on a human who already
// likes the actor, or on any automated account, becomes a mutual match and
// provisions the pair's channel.
func (e *Engine) Like(ctx context.Context, actorID, targetID int64) (*LikeResult, error) {
	start := time.Now()
	var res *LikeResult
	var newMatch bool
	err := checkPair(actorID, targetID)
	if err == nil {
		err = e.inTx(ctx, "like", func(tx *gorm.DB) error {
			r, formed, err := e.like(tx, actorID, targetID)
			res, newMatch = r, formed
			return err
		})
	}
	e.observe("like", start, err)
	if err != nil {
		return nil, err
	}

	if res.IsMatch && newMatch {
		matchesFormed.WithLabelValues(res.TargetType).Inc()
	}
	if res.IsMatch && res.TargetType == model.KindBot {
		e.notifyMatch(ctx, actorID, targetID, *res.ChannelID)
	}
	return res, nil
}

func (e *Engine) like(tx *gorm.DB, actorID, targetID int64) (*LikeResult, bool, error) {
	target, err := e.lockParties(tx, actorID, targetID)
	if err != nil {
		return nil, false, err
	}
	edges, err := lockEdges(tx, actorID, targetID)
	if err != nil {
		return nil, false, err
	}
	prev, rev := edges.forwardAction(), edges.reverseAction()
	if prev == model.ActionLike || prev == model.ActionMatch {
		return nil, false, conflict("already liked")
	}

	// A reverse match without a forward one only exists after a partial
	// write; treating it as reciprocated repairs the pair.
	isMatch := target.IsBot() || rev == model.ActionLike || rev == model.ActionMatch

	if isMatch {
		err = writeMatch(tx, edges, actorID, targetID)
	} else {
		_, err = writeEdge(tx, edges.forward, actorID, targetID, model.ActionLike, false)
	}
	if err != nil {
		return nil, false, err
	}

	actorDelta, targetDelta := likeDeltas(prev, rev, isMatch)
	if err := e.accounts.Adjust(tx, actorID, actorDelta); err != nil {
		return nil, false, err
	}
	if err := e.accounts.Adjust(tx, targetID, targetDelta); err != nil {
		return nil, false, err
	}

	res := &LikeResult{TargetID: targetID, TargetType: target.Kind, IsMatch: isMatch}
	if isMatch {
		ch, err := e.channels.GetOrCreate(tx, actorID, targetID)
		if err != nil {
			return nil, false, err
		}
		res.ChannelID = &ch.ID
	}
	e.logger.Debug("like applied",
		zap.Int64("actor_id", actorID),
		zap.Int64("target_id", targetID),
		zap.String("previous", prev),
		zap.String("reverse", rev),
		zap.Bool("match", isMatch))
	return res, isMatch && (prev != model.ActionMatch || rev != model.ActionMatch), nil
}

// Reject records that actorID rejects targetID. Rejecting twice is a no-op.
// Rejecting a match demotes the other side's row to a plain like; the
// channel is kept.
func (e *Engine) Reject(ctx context.Context, actorID, targetID int64) (*RejectResult, error) {
	start := time.Now()
	var res *RejectResult
	var dissolved bool
	err := checkPair(actorID, targetID)
	if err == nil {
		err = e.inTx(ctx, "reject", func(tx *gorm.DB) error {
			r, d, err := e.reject(tx, actorID, targetID)
			res, dissolved = r, d
			return err
		})
	}
	e.observe("reject", start, err)
	if err != nil {
		return nil, err
	}
	if dissolved {
		matchesDissolved.Inc()
	}
	return res, nil
}

func (e *Engine) reject(tx *gorm.DB, actorID, targetID int64) (*RejectResult, bool, error) {
	target, err := e.lockParties(tx, actorID, targetID)
	if err != nil {
		return nil, false, err
	}
	res := &RejectResult{TargetID: targetID, TargetType: target.Kind}

	edges, err := lockEdges(tx, actorID, targetID)
	if err != nil {
		return nil, false, err
	}
	prev, rev := edges.forwardAction(), edges.reverseAction()
	if prev == model.ActionReject {
		return res, false, nil
	}

	if _, err := writeEdge(tx, edges.forward, actorID, targetID, model.ActionReject, false); err != nil {
		return nil, false, err
	}
	wasMatch := prev == model.ActionMatch || rev == model.ActionMatch
	if rev == model.ActionMatch {
		if _, err := writeEdge(tx, edges.reverse, targetID, actorID, model.ActionLike, false); err != nil {
			return nil, false, err
		}
	}

	actorDelta, targetDelta := rejectDeltas(prev, wasMatch)
	if err := e.accounts.Adjust(tx, actorID, actorDelta); err != nil {
		return nil, false, err
	}
	if err := e.accounts.Adjust(tx, targetID, targetDelta); err != nil {
		return nil, false, err
	}
	e.logger.Debug("reject applied",
		zap.Int64("actor_id", actorID),
		zap.Int64("target_id", targetID),
		zap.String("previous", prev),
		zap.Bool("dissolved_match", wasMatch))
	return res, wasMatch, nil
}

// likeDeltas returns the counter changes of a like for the actor and the
// target. prev and rev are the locked actions before the call.
func likeDeltas(prev, rev string, isMatch bool) (actor, target account.Delta) {
	if isMatch && (prev != model.ActionMatch || rev != model.ActionMatch) {
		actor.Matches++
		target.Matches++
	}
	switch prev {
	case model.ActionReject:
		actor.Likes++
		actor.Rejects--
	case "":
		actor.Likes++
	}
	return actor, target
}

// rejectDeltas returns the counter changes of a reject that is not a no-op.
func rejectDeltas(prev string, wasMatch bool) (actor, target account.Delta) {
	if wasMatch {
		actor.Matches--
		target.Matches--
	}
	if prev == model.ActionLike || prev == model.ActionMatch {
		actor.Likes--
	}
	actor.Rejects++
	return actor, target
}

// inTx runs fn in a transaction and reruns the whole call when it fails
// transiently, up to the configured number of retries. fn must not carry
// state from a failed attempt into the next.
func (e *Engine) inTx(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	for attempt := 0; ; attempt++ {
		err := classify(e.db.WithContext(ctx).Transaction(fn))
		if err == nil || !errors.Is(err, ErrTransient) {
			if errors.Is(err, ErrInternal) {
				e.logger.Error("engine transaction failed", zap.String("op", op), zap.Error(err))
			}
			return err
		}
		if attempt >= e.cfg.TransientRetries || ctx.Err() != nil {
			e.logger.Warn("engine transaction gave up",
				zap.String("op", op), zap.Int("attempts", attempt+1), zap.Error(err))
			return err
		}
		txRetries.WithLabelValues(op).Inc()
		e.logger.Debug("retrying engine transaction",
			zap.String("op", op), zap.Int("attempt", attempt+1), zap.Error(err))
	}
}

// lockParties locks both account rows of the pair before any ledger row is
// read and returns the target. When neither edge exists yet there is no
// ledger row to lock, so this is what keeps two crossing first likes from
// both missing the match.
func (e *Engine) lockParties(tx *gorm.DB, actorID, targetID int64) (*model.Account, error) {
	accs, err := e.accounts.LockPair(tx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if accs[actorID] == nil {
		return nil, notFound("actor account not found")
	}
	target := accs[targetID]
	if target == nil || !target.Available() {
		return nil, notFound("target account not found")
	}
	return target, nil
}

// target loads the account being acted on. Missing and inactive accounts are
// reported identically.
func (e *Engine) target(tx *gorm.DB, id int64, forUpdate bool) (*model.Account, error) {
	acc, err := e.accounts.Get(tx, id, forUpdate)
	if errors.Is(err, account.ErrNotFound) || (err == nil && !acc.Available()) {
		return nil, notFound("target account not found")
	}
	return acc, err
}

func (e *Engine) notifyMatch(ctx context.Context, actorID, targetID, channelID int64) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyMatch(ctx, actorID, targetID, channelID); err != nil {
		e.logger.Warn("match notification failed",
			zap.Int64("actor_id", actorID),
			zap.Int64("target_id", targetID),
			zap.Int64("channel_id", channelID),
			zap.Error(err))
	}
}

func (e *Engine) observe(op string, start time.Time, err error) {
	opsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func checkPair(actorID, targetID int64) error {
	if actorID <= 0 || targetID <= 0 {
		return invalidArgument("account ids must be positive")
	}
	if actorID == targetID {
		return invalidArgument("cannot act on yourself")
	}
	return nil
}
