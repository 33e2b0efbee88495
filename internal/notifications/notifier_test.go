package notifications

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	ctx := context.Background()

	assert.NoError(t, n.PublishUser(ctx, "owner-1", []byte(`{}`)))
	assert.NoError(t, n.PublishFeed(ctx, []byte(`{}`)))
	assert.NoError(t, n.PublishConversation(ctx, "owner-1", []byte(`{}`)))
	assert.NoError(t, n.PublishApproved(ctx, []byte(`{}`)))
	assert.False(t, n.StartEventSubscriber(ctx, func(string, []byte) {}))
}

func TestNotifier_ChannelNames(t *testing.T) {
	assert.Equal(t, "notifications:user:u-1", UserChannel("u-1"))
	assert.Equal(t, "conversations:owner:o-1", ConversationChannel("o-1"))
}

func TestNotifier_SubscriberReceivesPublishedEvents(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var count int32
	var lastChannel atomic.Value
	require.True(t, n.StartEventSubscriber(ctx, func(channel string, payload []byte) {
		lastChannel.Store(channel)
		atomic.AddInt32(&count, 1)
	}))

	require.NoError(t, n.PublishUser(ctx, "owner-1", []byte(`{"type":"notification"}`)))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&count) == 1
	}, testEventuallyTimeout, testPollInterval)
	assert.Equal(t, UserChannel("owner-1"), lastChannel.Load())

	require.NoError(t, n.PublishApproved(ctx, []byte(`{"type":"business_approved"}`)))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&count) == 2
	}, testEventuallyTimeout, testPollInterval)
	assert.Equal(t, ApprovedChannel, lastChannel.Load())
}

func TestNotifier_CancelStopsSubscriber(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	var count int32
	require.True(t, n.StartEventSubscriber(ctx, func(string, []byte) {
		atomic.AddInt32(&count, 1)
	}))

	require.NoError(t, n.PublishFeed(ctx, []byte(`{"type":"request_event"}`)))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&count) == 1
	}, testEventuallyTimeout, testPollInterval)

	cancel()

	// publish after cancellation must not reach the handler
	assert.NoError(t, n.PublishFeed(context.Background(), []byte(`{"type":"request_event"}`)))
	assert.Never(t, func() bool {
		return atomic.LoadInt32(&count) > 1
	}, 20*testPollInterval, testPollInterval)
}
