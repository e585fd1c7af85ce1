package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"learnpath-service/internal/domain"
)

// NotificationGateway is the upstream a display queue reports read state to.
type NotificationGateway interface {
	MarkNotificationRead(ctx context.Context, id string) error
}

// QueueEventType labels display queue changes pushed to clients.
type QueueEventType string

const (
	QueueShown     QueueEventType = "shown"
	QueueDismissed QueueEventType = "dismissed"
)

// QueueEvent is one visible-queue change.
type QueueEvent struct {
	Type         QueueEventType      `json:"type"`
	Notification domain.Notification `json:"notification"`
}

const (
	defaultVisibleCap   = 3
	defaultDismissAfter = 5 * time.Second
)

// DisplayQueue surfaces a bounded, deduplicated, auto-expiring stream of
// alerts out of the full notification list. It remembers every id it has
// surfaced for its lifetime, keeps at most the cap most recent entries
// visible, and runs one independent auto-dismiss timer per visible entry.
// Timer callbacks look the entry up by id at fire time instead of closing
// over a snapshot, so a manual dismissal always wins the race.
type DisplayQueue struct {
	userID       string
	gateway      NotificationGateway
	log          *logrus.Entry
	cap          int
	dismissAfter time.Duration
	emit         func(QueueEvent)

	mu       sync.Mutex
	closed   bool
	surfaced map[string]struct{}
	visible  []domain.Notification
	timers   map[string]*time.Timer
}

// QueueOption customizes a DisplayQueue.
type QueueOption func(*DisplayQueue)

// WithVisibleCap overrides the maximum simultaneously visible entries.
func WithVisibleCap(n int) QueueOption {
	return func(q *DisplayQueue) {
		if n > 0 {
			q.cap = n
		}
	}
}

// WithDismissAfter overrides the auto-dismiss delay.
func WithDismissAfter(d time.Duration) QueueOption {
	return func(q *DisplayQueue) {
		if d > 0 {
			q.dismissAfter = d
		}
	}
}

// WithQueueEvents registers a callback invoked on every visible-queue
// change. It runs outside the queue lock.
func WithQueueEvents(fn func(QueueEvent)) QueueOption {
	return func(q *DisplayQueue) { q.emit = fn }
}

// NewDisplayQueue builds a queue for one user's page lifetime.
func NewDisplayQueue(userID string, gateway NotificationGateway, log *logrus.Entry, opts ...QueueOption) *DisplayQueue {
	q := &DisplayQueue{
		userID:       userID,
		gateway:      gateway,
		log:          log,
		cap:          defaultVisibleCap,
		dismissAfter: defaultDismissAfter,
		surfaced:     make(map[string]struct{}),
		timers:       make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Ingest takes the full notification list and surfaces the entries that are
// addressed to this user or broadcast, unread, and not yet surfaced. The
// visible queue keeps the cap most recent entries; anything pushed past the
// cap is dropped from auto-display and stays only in the full list.
func (q *DisplayQueue) Ingest(list []domain.Notification) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	merged := append([]domain.Notification{}, q.visible...)
	for _, n := range list {
		if !n.Broadcast() && n.UserID != q.userID {
			continue
		}
		if n.Read() {
			continue
		}
		if _, seen := q.surfaced[n.ID]; seen {
			continue
		}
		q.surfaced[n.ID] = struct{}{}
		merged = append(merged, n)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	if len(merged) > q.cap {
		for _, evicted := range merged[:len(merged)-q.cap] {
			if timer, ok := q.timers[evicted.ID]; ok {
				timer.Stop()
				delete(q.timers, evicted.ID)
			}
		}
		merged = merged[len(merged)-q.cap:]
	}
	q.visible = merged

	var shown []domain.Notification
	for _, n := range q.visible {
		if _, running := q.timers[n.ID]; running {
			continue
		}
		id := n.ID
		q.timers[id] = time.AfterFunc(q.dismissAfter, func() {
			q.autoDismiss(id)
		})
		shown = append(shown, n)
	}
	emit := q.emit
	q.mu.Unlock()

	if emit != nil {
		for _, n := range shown {
			emit(QueueEvent{Type: QueueShown, Notification: n})
		}
	}
}

// Dismiss removes an entry immediately, cancels its timer only, and marks
// it read upstream. Unknown or already-dismissed ids are no-ops.
func (q *DisplayQueue) Dismiss(ctx context.Context, id string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	removed, ok := q.removeLocked(id)
	emit := q.emit
	q.mu.Unlock()
	if !ok {
		return
	}

	q.markRead(ctx, id)
	if emit != nil {
		emit(QueueEvent{Type: QueueDismissed, Notification: removed})
	}
}

// Visible returns a copy of the currently visible entries.
func (q *DisplayQueue) Visible() []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Notification, len(q.visible))
	copy(out, q.visible)
	return out
}

// Close cancels every pending timer; the queue accepts nothing afterwards.
func (q *DisplayQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
}

func (q *DisplayQueue) autoDismiss(id string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if _, running := q.timers[id]; !running {
		// Manually dismissed or evicted between scheduling and firing.
		q.mu.Unlock()
		return
	}
	delete(q.timers, id)
	removed, ok := q.removeLocked(id)
	emit := q.emit
	q.mu.Unlock()
	if !ok {
		return
	}

	q.markRead(context.Background(), id)
	if emit != nil {
		emit(QueueEvent{Type: QueueDismissed, Notification: removed})
	}
}

func (q *DisplayQueue) removeLocked(id string) (domain.Notification, bool) {
	for i, n := range q.visible {
		if n.ID == id {
			q.visible = append(q.visible[:i], q.visible[i+1:]...)
			return n, true
		}
	}
	return domain.Notification{}, false
}

// markRead reports read state upstream; a failed write is logged, not
// retried, and never blocks the local dismissal.
func (q *DisplayQueue) markRead(ctx context.Context, id string) {
	if q.gateway == nil {
		return
	}
	if err := q.gateway.MarkNotificationRead(ctx, id); err != nil && q.log != nil {
		q.log.WithError(err).WithField("notification_id", id).Warn("mark notification read failed")
	}
}
