package gateway

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/engagekit/crm/internal/model"
)

var (
	ErrNoReadySender = errors.New("no ready senders")
	ErrNotAcquired   = errors.New("sender not acquired")
)

// Dispatcher round-robins each delivery over the ready senders, retrying
// up to maxAttempts distinct picks before giving up. A terminal error
// here becomes a FAILED row in the communication log.
type Dispatcher struct {
	senders     []Sender
	rr          atomic.Uint64
	maxAttempts int
}

func NewDispatcher(senders []Sender, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 2
	}
	return &Dispatcher{senders: senders, maxAttempts: maxAttempts}
}

func (d *Dispatcher) pick() (Sender, error) {
	ready := make([]Sender, 0, len(d.senders))
	for _, s := range d.senders {
		if s.Ready() {
			ready = append(ready, s)
		}
	}
	if len(ready) == 0 {
		return nil, ErrNoReadySender
	}

	x := d.rr.Add(1)
	return ready[int((x-1)%uint64(len(ready)))], nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, item model.DeliveryWorkItem) error {
	s, err := d.pick()
	if err != nil {
		return err
	}
	if !s.Acquire() {
		return ErrNotAcquired
	}
	return s.Send(ctx, item)
}

func (d *Dispatcher) Send(ctx context.Context, item model.DeliveryWorkItem) error {
	var last error
	for i := 0; i < d.maxAttempts; i++ {
		if err := d.tryOnce(ctx, item); err == nil {
			return nil
		} else {
			last = err
		}
	}
	return last
}
