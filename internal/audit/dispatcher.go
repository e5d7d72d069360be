package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events instead of blocking the caller when the
	// buffer is full.
	DropIfFull bool
}

// pending is a queued event with the context of the request that raised it.
type pending struct {
	ctx   context.Context
	event Event
}

// Dispatcher forwards audit events to a sink on a single goroutine so that
// slow sinks never sit on the request path.
//
// Every Emit either hands its event to the sink or counts it in Dropped,
// including events raised after Close.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	queue   chan pending
	dropped atomic.Uint64
	wg      sync.WaitGroup

	// mu is held for reading while sending on queue and for writing while
	// closing it.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a dispatcher, or returns nil when auditing is off.
// All methods are safe on a nil *Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:   cfg,
		sink:  sink,
		queue: make(chan pending, cfg.BufferSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for p := range d.queue {
		d.sink.Emit(p.ctx, p.event)
	}
}

// Emit queues event. The sink sees ctx with its values but without its
// deadline, so an event outlives the request that raised it. In blocking
// mode a cancelled ctx gives up the wait and counts the event as dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p := pending{ctx: context.WithoutCancel(ctx), event: event}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- p:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- p:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// sink to finish. It is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// Dropped reports how many events never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
