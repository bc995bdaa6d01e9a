package observer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/port"
	"github.com/rl1809/marketplace/pkg/logger"
)

const recordTimeout = 2 * time.Second

// AsyncRecorder hands events to an EventStore from a background goroutine.
// When the buffer is full the newest event is dropped and counted.
type AsyncRecorder struct {
	store port.EventStore
	log   *logger.Logger
	queue chan domain.Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	recorded atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
}

type RecorderStats struct {
	Recorded uint64
	Dropped  uint64
	Failed   uint64
}

func NewAsyncRecorder(store port.EventStore, buffer int, log *logger.Logger) *AsyncRecorder {
	if buffer <= 0 {
		buffer = 1
	}
	r := &AsyncRecorder{
		store: store,
		log:   log.Named("event-recorder"),
		queue: make(chan domain.Event, buffer),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *AsyncRecorder) Observe(ev domain.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	select {
	case r.queue <- ev:
	default:
		r.dropped.Add(1)
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)

	for ev := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		err := r.store.Record(ctx, ev)
		cancel()

		if err != nil {
			r.failed.Add(1)
			r.log.Warn().Err(err).Str("event", string(ev.Kind)).Msg("record event failed")
			continue
		}
		r.recorded.Add(1)
	}
}

// Close stops accepting events and waits until the buffer is flushed.
func (r *AsyncRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

func (r *AsyncRecorder) Stats() RecorderStats {
	return RecorderStats{
		Recorded: r.recorded.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
	}
}
