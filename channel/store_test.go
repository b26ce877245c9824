package channel_test

import (
	"testing"

	"github.com/kasuganosora/matchd/channel"
	"github.com/kasuganosora/matchd/model"
	"github.com/kasuganosora/matchd/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCanonicalPair(t *testing.T) {
	lo, hi := model.CanonicalPair(9, 3)
	assert.Equal(t, int64(3), lo)
	assert.Equal(t, int64(9), hi)
	lo, hi = model.CanonicalPair(3, 9)
	assert.Equal(t, int64(3), lo)
	assert.Equal(t, int64(9), hi)
}

func TestGetOrCreate_OnePerPair(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := channel.NewStore()
	a := testutil.CreateAccount(t, db, model.KindHuman)
	b := testutil.CreateAccount(t, db, model.KindBot)

	var first, second *model.Channel
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = s.GetOrCreate(tx, a.ID, b.ID)
		return err
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		second, err = s.GetOrCreate(tx, b.ID, a.ID)
		return err
	}))
	assert.Equal(t, first.ID, second.ID)
	assert.Less(t, first.LowID, first.HighID)
	assert.Equal(t, model.ChannelActive, first.LowStatus)
	assert.Equal(t, model.ChannelActive, first.HighStatus)

	var n int64
	require.NoError(t, db.Model(&model.Channel{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := channel.NewStore()

	_, err := s.Get(db, 1, 2)
	assert.ErrorIs(t, err, channel.ErrNotFound)

	created, err := s.GetOrCreate(db, 2, 1)
	require.NoError(t, err)
	got, err := s.Get(db, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestSetSideStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := channel.NewStore()

	ok, err := s.SetSideStatus(db, 5, 7, model.ChannelBlocked)
	require.NoError(t, err)
	assert.False(t, ok, "no channel yet")

	_, err = s.GetOrCreate(db, 5, 7)
	require.NoError(t, err)

	ok, err = s.SetSideStatus(db, 7, 5, model.ChannelBlocked)
	require.NoError(t, err)
	assert.True(t, ok)

	ch, err := s.Get(db, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelBlocked, ch.StatusFor(7))
	assert.Equal(t, model.ChannelActive, ch.StatusFor(5))

	ok, err = s.SetSideStatus(db, 5, 7, model.ChannelDeleted)
	require.NoError(t, err)
	assert.True(t, ok)
	ch, err = s.Get(db, 7, 5)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelDeleted, ch.LowStatus)
	assert.Equal(t, model.ChannelBlocked, ch.HighStatus)
}
