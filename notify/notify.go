// Package notify holds NotificationSink implementations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/pomomo-focus"
)

// LogSink writes notifications to the log.
type LogSink struct {
	l *log.Logger
}

func NewLogSink(l *log.Logger) *LogSink {
	return &LogSink{l: l}
}

func (s *LogSink) Notify(ctx context.Context, n pomomo.Notification) error {
	kvs := []any{"uid", n.UserID, "severity", n.Severity}
	switch n.Severity {
	case pomomo.SeverityNegative:
		s.l.Error(n.Message, kvs...)
	case pomomo.SeverityWarning:
		s.l.Warn(n.Message, kvs...)
	default:
		s.l.Info(n.Message, kvs...)
	}
	return nil
}

// MultiSink fans a notification out to every sink in order.
type MultiSink []pomomo.NotificationSink

func (m MultiSink) Notify(ctx context.Context, n pomomo.Notification) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const subscriberBuffer = 64

type subscriber struct {
	ch chan pomomo.Notification
	// missed counts notifications dropped since the last delivery
	missed int
}

// Broadcaster republishes notifications to live per-user subscribers.
// Nothing is replayed to late subscribers.
type Broadcaster struct {
	l *log.Logger

	mu     sync.Mutex
	nextID int
	subs   map[pomomo.UserID]map[int]*subscriber
}

func NewBroadcaster(l *log.Logger) *Broadcaster {
	return &Broadcaster{
		l:    l,
		subs: make(map[pomomo.UserID]map[int]*subscriber),
	}
}

// Subscribe returns the user's stream and a func that closes it.
func (b *Broadcaster) Subscribe(uid pomomo.UserID) (<-chan pomomo.Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan pomomo.Notification, subscriberBuffer)}
	if b.subs[uid] == nil {
		b.subs[uid] = make(map[int]*subscriber)
	}
	b.subs[uid][id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[uid], id)
			if len(b.subs[uid]) == 0 {
				delete(b.subs, uid)
			}
			close(sub.ch)
		})
	}
}

// Notify never blocks. A subscriber that fell a full buffer behind misses
// notifications, and gets a warning with the count once it has room again.
func (b *Broadcaster) Notify(ctx context.Context, n pomomo.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs[n.UserID] {
		if sub.missed > 0 {
			if !sub.send(missedNotification(n, sub.missed)) {
				sub.missed++
				continue
			}
			sub.missed = 0
		}
		if !sub.send(n) {
			sub.missed++
			b.l.Warn("subscriber too slow - dropping notification", "uid", n.UserID, "sub", id, "missed", sub.missed)
		}
	}
	return nil
}

func (b *Broadcaster) Subscribers(uid pomomo.UserID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[uid])
}

func (s *subscriber) send(n pomomo.Notification) bool {
	select {
	case s.ch <- n:
		return true
	default:
		return false
	}
}

func missedNotification(next pomomo.Notification, missed int) pomomo.Notification {
	msg := fmt.Sprintf("Missed %d notifications.", missed)
	if missed == 1 {
		msg = "Missed 1 notification."
	}
	return pomomo.Notification{
		UserID:   next.UserID,
		Message:  msg,
		Severity: pomomo.SeverityWarning,
		At:       next.At,
	}
}
