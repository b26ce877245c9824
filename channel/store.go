// Package channel provisions the one conversation channel that belongs to an
// unordered pair of accounts.
package channel

import (
	"errors"

	"github.com/kasuganosora/matchd/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by Get when the pair has no channel yet.
var ErrNotFound = errors.New("channel: not found")

// Store implements get-or-create and per-side status updates on channels.
type Store struct{}

// NewStore creates a Store.
func NewStore() *Store { return &Store{} }

// GetOrCreate returns the channel of the pair (a, b), creating it if absent.
// The lookup locks the row; a concurrent creator losing the unique-key race
// re-reads the winner's row instead of failing.
func (s *Store) GetOrCreate(tx *gorm.DB, a, b int64) (*model.Channel, error) {
	low, high := model.CanonicalPair(a, b)
	ch, err := lockPair(tx, low, high)
	if err == nil {
		return ch, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ch = &model.Channel{
		LowID:      low,
		HighID:     high,
		LowStatus:  model.ChannelActive,
		HighStatus: model.ChannelActive,
	}
	err = tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(ch).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return lockPair(tx, low, high)
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Get returns the pair's channel without creating it.
func (s *Store) Get(db *gorm.DB, a, b int64) (*model.Channel, error) {
	low, high := model.CanonicalPair(a, b)
	var ch model.Channel
	if err := db.Where("low_id = ? AND high_id = ?", low, high).Take(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ch, nil
}

// SetSideStatus sets the status of the pair's channel as seen by selfID.
// The other side is left untouched. It reports whether a channel existed.
func (s *Store) SetSideStatus(tx *gorm.DB, selfID, otherID int64, status string) (bool, error) {
	low, high := model.CanonicalPair(selfID, otherID)
	col := "low_status"
	if selfID == high {
		col = "high_status"
	}
	res := tx.Model(&model.Channel{}).
		Where("low_id = ? AND high_id = ?", low, high).
		Update(col, status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func lockPair(tx *gorm.DB, low, high int64) (*model.Channel, error) {
	var ch model.Channel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("low_id = ? AND high_id = ?", low, high).
		Take(&ch).Error
	if err != nil {
		return nil, err
	}
	return &ch, nil
}
