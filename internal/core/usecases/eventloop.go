package usecases

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/ports"
)

// ErrLoopClosed is returned when posting to a stopped EventLoop.
var ErrLoopClosed = errors.New("event loop closed")

// EventLoop runs posted functions one at a time on a single goroutine.
// It is the serialization point for a map session.
type EventLoop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// NewEventLoop creates a loop with the given queue capacity.
func NewEventLoop(buffer int) *EventLoop {
	if buffer <= 0 {
		buffer = 256
	}
	return &EventLoop{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post enqueues fn. It blocks while the queue is full and fails once the
// loop has stopped.
func (l *EventLoop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Run drains the queue until ctx is cancelled or Stop is called.
func (l *EventLoop) Run(ctx context.Context) {
	defer l.Stop()
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-ctx.Done():
			return
		case <-l.done:
			return
		}
	}
}

// Stop ends the loop. Queued functions that have not run are discarded.
func (l *EventLoop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed once the loop stops.
func (l *EventLoop) Done() <-chan struct{} {
	return l.done
}

// SerializedProximity wraps a ProximityService so that its handlers run on loop.
func SerializedProximity(inner ports.ProximityService, loop *EventLoop) ports.ProximityService {
	return &serializedProximity{inner: inner, loop: loop}
}

type serializedProximity struct {
	inner ports.ProximityService
	loop  *EventLoop
}

func (p *serializedProximity) Subscribe(ctx context.Context, query domain.ProximityQuery, h ports.ProximityHandlers) (ports.Subscription, error) {
	return p.inner.Subscribe(ctx, query, ports.ProximityHandlers{
		Entered: func(id string, loc domain.Coordinate) {
			_ = p.loop.Post(func() { h.Entered(id, loc) })
		},
		Exited: func(id string) {
			_ = p.loop.Post(func() { h.Exited(id) })
		},
	})
}
