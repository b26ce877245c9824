package rest

import (
	"context"
	"errors"

	"github.com/kasuganosora/matchd/account"
	mw "github.com/kasuganosora/matchd/middleware"
	"gorm.io/gorm"
)

// AccountExists is the token check for API routes: the account named by the
// token must still be registered. Suspended accounts may still manage their
// own relations; only their visibility to others is affected.
func AccountExists(db *gorm.DB) mw.AccountCheck {
	store := account.NewStore()
	return func(ctx context.Context, accountID int64) (bool, error) {
		_, err := store.Get(db.WithContext(ctx), accountID, false)
		if errors.Is(err, account.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}
}
