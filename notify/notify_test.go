package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/pomomo-focus"
)

type mockSink struct {
	notifyFunc func(context.Context, pomomo.Notification) error
	got        []pomomo.Notification
}

func (m *mockSink) Notify(ctx context.Context, n pomomo.Notification) error {
	m.got = append(m.got, n)
	if m.notifyFunc != nil {
		return m.notifyFunc(ctx, n)
	}
	return nil
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewLogSink(log.New(&buf))
	require.NoError(t, sink.Notify(t.Context(), pomomo.Notification{UserID: "u1", Message: "Break complete!", Severity: pomomo.SeverityPositive}))

	assert.Contains(t, buf.String(), "Break complete!")
	assert.Contains(t, buf.String(), "uid=u1")
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a := &mockSink{notifyFunc: func(context.Context, pomomo.Notification) error { return boom }}
	b := &mockSink{}
	sink := MultiSink{a, b}

	err := sink.Notify(t.Context(), pomomo.Notification{Message: "hi"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1, "later sinks still receive after an error")
}

func TestBroadcaster(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(log.New(io.Discard))
	alice, closeAlice := b.Subscribe("alice")
	bob, closeBob := b.Subscribe("bob")
	defer closeBob()
	assert.Equal(t, 1, b.Subscribers("alice"))

	for _, msg := range []string{"one", "two"} {
		require.NoError(t, b.Notify(t.Context(), pomomo.Notification{UserID: "alice", Message: msg}))
	}
	assert.Equal(t, "one", (<-alice).Message)
	assert.Equal(t, "two", (<-alice).Message)
	assert.Empty(t, bob)

	closeAlice()
	closeAlice()
	_, open := <-alice
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("alice"))

	// no subscribers is fine
	require.NoError(t, b.Notify(t.Context(), pomomo.Notification{UserID: "alice", Message: "late"}))
}

func TestBroadcaster_SlowSubscriber(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(log.New(io.Discard))
	ch, cancel := b.Subscribe("alice")
	defer cancel()

	for range subscriberBuffer + 10 {
		require.NoError(t, b.Notify(t.Context(), pomomo.Notification{UserID: "alice", Message: "x"}))
	}
	assert.Len(t, ch, subscriberBuffer)

	// once drained, the next notification is preceded by the count
	for range subscriberBuffer {
		<-ch
	}
	require.NoError(t, b.Notify(t.Context(), pomomo.Notification{UserID: "alice", Message: "after"}))
	missed := <-ch
	assert.Equal(t, "Missed 10 notifications.", missed.Message)
	assert.Equal(t, pomomo.SeverityWarning, missed.Severity)
	assert.Equal(t, "after", (<-ch).Message)
	assert.Empty(t, ch)
}
