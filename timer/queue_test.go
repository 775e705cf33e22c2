package timer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingSink struct {
	release chan struct{}
	recordingSink
}

func (s *blockingSink) Notify(ctx context.Context, n pomomo.Notification) error {
	<-s.release
	return s.recordingSink.Notify(ctx, n)
}

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSink) Notify(context.Context, pomomo.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return errors.New("channel gone")
}

func TestNotifier(t *testing.T) {
	t.Parallel()

	t.Run("delivers in enqueue order", func(t *testing.T) {
		t.Parallel()
		sink := &recordingSink{}
		n := newNotifier(sink, log.New(io.Discard))

		var want []string
		for i := range 100 {
			msg := fmt.Sprintf("msg %d", i)
			want = append(want, msg)
			n.Enqueue(pomomo.Notification{Message: msg})
		}
		n.Close()

		assert.Equal(t, want, sink.messages())
	})

	t.Run("enqueue never blocks on a slow sink", func(t *testing.T) {
		t.Parallel()
		sink := &blockingSink{release: make(chan struct{})}
		n := newNotifier(sink, log.New(io.Discard))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := range 50 {
				n.Enqueue(pomomo.Notification{Message: fmt.Sprint(i)})
			}
		}()
		select {
		case <-done:
		case <-time.After(waitTimeout):
			t.Fatal("enqueue blocked")
		}

		close(sink.release)
		n.Close()
		assert.Len(t, sink.messages(), 50)
	})

	t.Run("concurrent producers lose nothing", func(t *testing.T) {
		t.Parallel()
		sink := &recordingSink{}
		n := newNotifier(sink, log.New(io.Discard))

		var wg sync.WaitGroup
		for p := range 8 {
			wg.Go(func() {
				for i := range 25 {
					n.Enqueue(pomomo.Notification{Message: fmt.Sprintf("%d-%d", p, i)})
				}
			})
		}
		wg.Wait()
		n.Close()

		msgs := sink.messages()
		require.Len(t, msgs, 200)
		seen := make(map[string]bool, len(msgs))
		for _, m := range msgs {
			assert.False(t, seen[m], "duplicate %s", m)
			seen[m] = true
		}
	})

	t.Run("sink errors do not stop delivery", func(t *testing.T) {
		t.Parallel()
		sink := &failingSink{}
		n := newNotifier(sink, log.New(io.Discard))
		n.Enqueue(pomomo.Notification{Message: "a"})
		n.Enqueue(pomomo.Notification{Message: "b"})
		n.Close()

		assert.Equal(t, 2, sink.calls)
	})

	t.Run("enqueue after close is dropped", func(t *testing.T) {
		t.Parallel()
		sink := &recordingSink{}
		n := newNotifier(sink, log.New(io.Discard))
		n.Close()
		n.Enqueue(pomomo.Notification{Message: "late"})
		n.Close()

		assert.Empty(t, sink.messages())
	})

	t.Run("nil sink logs", func(t *testing.T) {
		t.Parallel()
		n := newNotifier(nil, log.New(io.Discard))
		n.Enqueue(pomomo.Notification{Message: "to the log"})
		n.Close()
	})
}
