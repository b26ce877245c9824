package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kasuganosora/matchd/cache"
	"github.com/kasuganosora/matchd/notify"
	"github.com/kasuganosora/matchd/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *cache.Message) notify.Event {
	t.Helper()
	select {
	case msg := <-ch:
		var ev notify.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for match event")
		return notify.Event{}
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "match:42", notify.Topic(42))
}

func TestPubSubNotifier_PublishesToBothParties(t *testing.T) {
	ps := testutil.SetupTestPubSub(t)
	ctx := context.Background()

	actorCh, cancelActor, err := ps.Subscribe(ctx, notify.Topic(1))
	require.NoError(t, err)
	defer cancelActor()
	targetCh, cancelTarget, err := ps.Subscribe(ctx, notify.Topic(2))
	require.NoError(t, err)
	defer cancelTarget()

	n := notify.NewPubSubNotifier(ps)
	require.NoError(t, n.NotifyMatch(ctx, 1, 2, 77))

	for _, ch := range []<-chan *cache.Message{actorCh, targetCh} {
		ev := receive(t, ch)
		assert.Equal(t, notify.EventMatch, ev.Type)
		assert.Equal(t, int64(1), ev.ActorID)
		assert.Equal(t, int64(2), ev.TargetID)
		assert.Equal(t, int64(77), ev.ChannelID)
		assert.False(t, ev.At.IsZero())
	}
}
