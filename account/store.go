// Package account is the registry of human and automated accounts and the
// only place their relationship counters are written.
package account

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/matchd/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when no account has the requested id.
var ErrNotFound = errors.New("account: not found")

// Delta is a relative change to an account's counters.
type Delta struct {
	Likes   int64
	Matches int64
	Rejects int64
}

// IsZero reports whether the delta changes nothing.
func (d Delta) IsZero() bool { return d.Likes == 0 && d.Matches == 0 && d.Rejects == 0 }

// Store reads accounts and adjusts their counters. Every method takes the
// *gorm.DB to run on so callers can pass an open transaction.
type Store struct{}

// NewStore creates a Store.
func NewStore() *Store { return &Store{} }

// Get loads an account. With forUpdate the row stays locked until the
// surrounding transaction ends.
func (s *Store) Get(tx *gorm.DB, id int64, forUpdate bool) (*model.Account, error) {
	q := tx
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var acc model.Account
	if err := q.Where("id = ?", id).Take(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// Adjust applies d to the account's counters in a single UPDATE. The
// arithmetic happens in SQL against the stored value and each counter is
// clamped at zero there, so concurrent adjustments never lose an update or
// go negative.
func (s *Store) Adjust(tx *gorm.DB, id int64, d Delta) error {
	if d.IsZero() {
		return nil
	}
	updates := make(map[string]interface{}, 3)
	if d.Likes != 0 {
		updates["likes_given"] = clamped("likes_given", d.Likes)
	}
	if d.Matches != 0 {
		updates["matches"] = clamped("matches", d.Matches)
	}
	if d.Rejects != 0 {
		updates["rejects"] = clamped("rejects", d.Rejects)
	}
	res := tx.Model(&model.Account{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("account: adjust %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Create registers a new account.
func (s *Store) Create(db *gorm.DB, username, kind string) (*model.Account, error) {
	if kind != model.KindHuman && kind != model.KindBot {
		return nil, fmt.Errorf("account: unknown kind %q", kind)
	}
	acc := &model.Account{
		Username: username,
		Kind:     kind,
		Active:   true,
		Status:   model.StatusNormal,
	}
	if err := db.Create(acc).Error; err != nil {
		return nil, err
	}
	return acc, nil
}

// LockPair loads and locks the accounts a and b in ascending id order and
// returns the ones that exist, keyed by id. Two transactions touching the
// same pair queue on the lower id row whichever side they start from, which
// holds under any isolation level.
func (s *Store) LockPair(tx *gorm.DB, a, b int64) (map[int64]*model.Account, error) {
	var rows []model.Account
	if err := lockPairQuery(tx, a, b, &rows).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]*model.Account, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func lockPairQuery(tx *gorm.DB, a, b int64, dest *[]model.Account) *gorm.DB {
	if a > b {
		a, b = b, a
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", []int64{a, b}).
		Order("id").
		Find(dest)
}

// SetActive toggles the activation flag.
func (s *Store) SetActive(db *gorm.DB, id int64, active bool) error {
	res := db.Model(&model.Account{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func clamped(col string, delta int64) clause.Expr {
	return gorm.Expr("CASE WHEN "+col+" + ? < 0 THEN 0 ELSE "+col+" + ? END", delta, delta)
}
