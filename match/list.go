package match

import (
	"context"
	"math"
	"time"

	"github.com/kasuganosora/matchd/model"
	"gorm.io/gorm"
)

// List filters.
const (
	FilterMatch = "match"
	FilterLike  = "like"
)

// Entry is one row of a match listing.
type Entry struct {
	TargetID   int64     `json:"target_id"`
	TargetType string    `json:"target_type"`
	Action     string    `json:"action"`
	ChannelID  *int64    `json:"channel_id,omitempty"`
	Blocked    bool      `json:"blocked"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Page selects a window of a listing. Page numbers start at 1; zero values
// fall back to the configured defaults.
type Page struct {
	Number int
	Size   int
}

func (e *Engine) window(p Page) (offset, limit int) {
	limit = p.Size
	if limit <= 0 {
		limit = e.cfg.PageSize
	}
	if e.cfg.MaxPageSize > 0 && limit > e.cfg.MaxPageSize {
		limit = e.cfg.MaxPageSize
	}
	if limit <= 0 {
		limit = 20
	}
	n := p.Number
	if n < 1 {
		n = 1
	}
	if n-1 > math.MaxInt/limit {
		return math.MaxInt, limit
	}
	return (n - 1) * limit, limit
}

// ListMatches lists userID's outgoing relations, most recently updated first.
// FilterMatch returns mutual matches, each with its channel id (created on
// the spot if missing). FilterLike returns likes that were never
// reciprocated.
func (e *Engine) ListMatches(ctx context.Context, userID int64, filter string, page Page) ([]Entry, error) {
	start := time.Now()
	var out []Entry
	err := e.validateList(userID, filter)
	if err == nil {
		err = e.inTx(ctx, "list", func(tx *gorm.DB) error {
			entries, err := e.list(tx, userID, filter, page)
			out = entries
			return err
		})
	}
	e.observe("list", start, err)
	return out, err
}

func (e *Engine) validateList(userID int64, filter string) error {
	if userID <= 0 {
		return invalidArgument("account id must be positive")
	}
	if filter != FilterMatch && filter != FilterLike {
		return invalidArgument("filter must be match or like")
	}
	return nil
}

func (e *Engine) list(tx *gorm.DB, userID int64, filter string, page Page) ([]Entry, error) {
	offset, limit := e.window(page)
	q := tx.Where("actor_id = ?", userID)
	if filter == FilterMatch {
		q = q.Where("action = ? AND mutual = ?", model.ActionMatch, true)
	} else {
		q = q.Where("action = ? AND mutual = ?", model.ActionLike, false)
	}
	var edges []model.Interaction
	if err := q.Order("updated_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&edges).Error; err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return []Entry{}, nil
	}

	ids := make([]int64, len(edges))
	for i, ed := range edges {
		ids[i] = ed.TargetID
	}
	var targets []model.Account
	if err := tx.Select("id", "kind").Where("id IN ?", ids).Find(&targets).Error; err != nil {
		return nil, err
	}
	kinds := make(map[int64]string, len(targets))
	for _, a := range targets {
		kinds[a.ID] = a.Kind
	}
	var blockedIDs []int64
	if err := tx.Model(&model.Block{}).
		Where("blocker_id = ? AND blocked_id IN ?", userID, ids).
		Pluck("blocked_id", &blockedIDs).Error; err != nil {
		return nil, err
	}
	blocked := make(map[int64]bool, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = true
	}

	out := make([]Entry, 0, len(edges))
	for _, ed := range edges {
		en := Entry{
			TargetID:   ed.TargetID,
			TargetType: kinds[ed.TargetID],
			Action:     ed.Action,
			Blocked:    blocked[ed.TargetID],
			UpdatedAt:  ed.UpdatedAt,
		}
		if filter == FilterMatch {
			ch, err := e.channels.GetOrCreate(tx, userID, ed.TargetID)
			if err != nil {
				return nil, err
			}
			en.ChannelID = &ch.ID
		}
		out = append(out, en)
	}
	return out, nil
}
