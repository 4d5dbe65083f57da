// Package notification renders lifecycle notifications from an embedded
// template catalogue and delivers them by email off the billing path.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/infrastructure/email"
	"github.com/orris-inc/billing/internal/shared/goroutine"
	"github.com/orris-inc/billing/internal/shared/logger"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification dispatcher is closed")
)

const sendTimeout = 30 * time.Second

type job struct {
	userID uint
	kind   usecases.NotificationKind
	data   map[string]any
}

// Dispatcher implements usecases.NotificationDispatcher on top of a bounded
// in-memory queue drained by a single worker.
type Dispatcher struct {
	catalogue *Catalogue
	directory usecases.UserDirectory
	sender    email.Sender
	logger    logger.Interface

	queue  chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(
	catalogue *Catalogue,
	directory usecases.UserDirectory,
	sender email.Sender,
	queueSize int,
	log logger.Interface,
) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		catalogue: catalogue,
		directory: directory,
		sender:    sender,
		logger:    log,
		queue:     make(chan job, queueSize),
	}
}

// Start launches the delivery worker. It stops when ctx is cancelled or
// Close has drained the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	goroutine.SafeGo(d.logger, "notification-dispatcher", func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case j, ok := <-d.queue:
				if !ok {
					return
				}
				d.deliver(ctx, j)
			}
		}
	})
}

// Send queues a notification and returns without waiting for delivery.
func (d *Dispatcher) Send(_ context.Context, userID uint, kind usecases.NotificationKind, data map[string]any) error {
	if !d.catalogue.Has(kind) {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	copied := make(map[string]any, len(data)+1)
	for k, v := range data {
		copied[k] = v
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- job{userID: userID, kind: kind, data: copied}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting notifications and waits for queued ones to be
// delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorw("notification delivery panicked",
				"user_id", j.userID,
				"kind", j.kind,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	contact, err := d.directory.GetContact(ctx, j.userID)
	if err != nil {
		d.logger.Errorw("failed to look up notification recipient",
			"user_id", j.userID,
			"kind", j.kind,
			"error", err,
		)
		return
	}
	if contact == nil || contact.Email == "" {
		d.logger.Warnw("notification recipient has no email, dropping",
			"user_id", j.userID,
			"kind", j.kind,
		)
		return
	}

	if _, ok := j.data["name"]; !ok {
		name := contact.Name
		if name == "" {
			name = contact.Email
		}
		j.data["name"] = name
	}

	rendered, err := d.catalogue.Render(j.kind, j.data)
	if err != nil {
		d.logger.Errorw("failed to render notification",
			"user_id", j.userID,
			"kind", j.kind,
			"error", err,
		)
		return
	}

	if err := d.sender.Send(ctx, email.Message{
		To:        contact.Email,
		ToName:    contact.Name,
		Subject:   rendered.Subject,
		PlainBody: rendered.PlainBody,
		HTMLBody:  rendered.HTMLBody,
	}); err != nil {
		d.logger.Errorw("failed to deliver notification",
			"user_id", j.userID,
			"kind", j.kind,
			"error", err,
		)
		return
	}

	d.logger.Infow("notification delivered",
		"user_id", j.userID,
		"kind", j.kind,
	)
}
