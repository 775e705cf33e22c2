package timer

import (
	"context"
	"sync"
	"time"

	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/charmbracelet/log"
)

const deliveryTimeout = 10 * time.Second

// notifier is an unbounded single-consumer queue in front of a NotificationSink.
// Enqueue never blocks; one goroutine delivers in enqueue order.
type notifier struct {
	sink pomomo.NotificationSink
	l    *log.Logger

	mu     sync.Mutex
	queue  []pomomo.Notification
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newNotifier(sink pomomo.NotificationSink, l *log.Logger) *notifier {
	n := &notifier{
		sink: sink,
		l:    l,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *notifier) Enqueue(item pomomo.Notification) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.l.Warn("notifier closed - dropping notification", "msg", item.Message)
		return
	}
	n.queue = append(n.queue, item)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Close delivers everything already queued and stops the consumer.
func (n *notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
	<-n.done
}

func (n *notifier) run() {
	defer close(n.done)
	for {
		n.mu.Lock()
		batch := n.queue
		n.queue = nil
		closed := n.closed
		n.mu.Unlock()

		for _, item := range batch {
			n.deliver(item)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-n.wake
	}
}

func (n *notifier) deliver(item pomomo.Notification) {
	if n.sink == nil {
		n.l.Info(item.Message, "severity", item.Severity)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := n.sink.Notify(ctx, item); err != nil {
		n.l.Error("failed to deliver notification", "msg", item.Message, "err", err)
	}
}
