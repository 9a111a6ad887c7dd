// Package events implements the Event Sink (C8): an observer of Loop
// Engine progress with two-lane backpressure. Droppable events never stall
// the loop; non-droppable events block the emitter while the high-priority
// lane is full, so a consumer that stops reading eventually stalls the
// loop. Adapted from the teacher's BackpressureSink
// (internal/agent/event_sink.go).
package events

import (
	"sync/atomic"

	"github.com/mikeoller82/agentic-core/pkg/core"
)

// Config sizes the two event lanes.
type Config struct {
	// HighPriBuffer is the buffer size for non-droppable events (lifecycle,
	// terminal, iteration boundaries). Default 32.
	HighPriBuffer int
	// LowPriBuffer is the buffer size for droppable events (Thinking,
	// Planning). Default 256, the size of spec section 5's default channel;
	// the high-priority lane and the merged output are sized separately.
	LowPriBuffer int
}

// DefaultConfig returns the spec's default lane sizes.
func DefaultConfig() Config {
	return Config{HighPriBuffer: 32, LowPriBuffer: 256}
}

// Sink is a two-lane backpressure-aware core.EventSink. Non-droppable
// events always get through, blocking the emitter until the merge loop
// takes them, and the merge loop in turn waits for the consumer to read
// the merged channel; droppable events are discarded on overflow rather
// than ever blocking the loop.
//
// Per DESIGN.md's documented resolution of spec 4.8's literal "drops the
// oldest" wording: this drops the *newest* incoming droppable event on a
// full low-priority lane (select/default on send), matching the teacher's
// actual mechanism. No invariant in the testable-properties list
// distinguishes which droppable event is lost under sustained overflow.
type Sink struct {
	highPri chan core.Event
	lowPri  chan core.Event
	merged  chan core.Event
	dropped uint64
	closed  uint32
}

// New creates a Sink and starts its merge goroutine. The returned channel
// is the single consumable stream; callers read from it until it closes.
func New(cfg Config) (*Sink, <-chan core.Event) {
	if cfg.HighPriBuffer <= 0 {
		cfg.HighPriBuffer = 32
	}
	if cfg.LowPriBuffer <= 0 {
		cfg.LowPriBuffer = 256
	}
	s := &Sink{
		highPri: make(chan core.Event, cfg.HighPriBuffer),
		lowPri:  make(chan core.Event, cfg.LowPriBuffer),
		merged:  make(chan core.Event, cfg.HighPriBuffer),
	}
	go s.mergeLoop()
	return s, s.merged
}

func (s *Sink) mergeLoop() {
	defer close(s.merged)
	for {
		select {
		case e, ok := <-s.highPri:
			if ok {
				s.merged <- e
				continue
			}
			for e := range s.lowPri {
				s.merged <- e
			}
			return
		default:
		}

		select {
		case e, ok := <-s.highPri:
			if ok {
				s.merged <- e
			} else {
				for e := range s.lowPri {
					s.merged <- e
				}
				return
			}
		case e, ok := <-s.lowPri:
			if ok {
				s.merged <- e
			}
		}
	}
}

// Emit implements core.EventSink. Droppable events are dropped on a full
// lane; non-droppable events block until there is room.
func (s *Sink) Emit(e core.Event) {
	if atomic.LoadUint32(&s.closed) == 1 {
		return
	}
	if e.Type.Droppable() {
		select {
		case s.lowPri <- e:
		default:
			atomic.AddUint64(&s.dropped, 1)
		}
		return
	}
	s.highPri <- e
}

// DroppedCount returns the number of droppable events lost to backpressure.
func (s *Sink) DroppedCount() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// Close stops the sink; after Close, Emit is a no-op and the merged
// channel will close once drained.
func (s *Sink) Close() {
	if !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return
	}
	close(s.highPri)
	close(s.lowPri)
}
