// Package virtual implements a scripted, in-process bus.Bus used by the
// pkg/t1 and pkg/se050 tests. cmd/se050cli registers it under the name
// "virtual", but scripts no responses on it, so a run against it fails
// at the first read.
// It replaces the physical I²C link with a pair of byte queues a test
// can pre-load with card responses and inspect for host writes.
package virtual

import (
	"errors"
	"sync"

	"github.com/nxpse050/se050go/internal/fifo"
	"github.com/nxpse050/se050go/pkg/bus"
)

func init() {
	bus.Register("virtual", New)
}

// ErrInjected is returned by WriteAll/ReadExact when a script step asked
// for a simulated bus fault.
var ErrInjected = errors.New("virtual: injected bus fault")

// step is one scripted exchange: bytes the card will return on the next
// ReadExact, optionally preceded by a fault on the matching WriteAll or
// ReadExact call.
type step struct {
	response  []byte
	failWrite bool
	failRead  bool
}

// Bus is a scripted virtual I²C bus. The channel argument to New is
// unused; tests construct one directly with NewBus and feed it with
// Push.
type Bus struct {
	mu      sync.Mutex
	pending []step
	writes  [][]byte
	inbox   *fifo.Fifo
	delays  []uint32
}

// New satisfies bus.NewFunc so "virtual" can be selected through
// bus.New("virtual", channel) in addition to direct construction.
func New(channel string) (bus.Bus, error) {
	return NewBus(), nil
}

// NewBus constructs an empty scripted bus.
func NewBus() *Bus {
	return &Bus{inbox: fifo.New(4096)}
}

// Push queues response bytes to be delivered on a future ReadExact call.
func (b *Bus) Push(response []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, step{response: response})
}

// PushWriteFault arranges for the next WriteAll to fail with ErrInjected.
func (b *Bus) PushWriteFault() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, step{failWrite: true})
}

// PushReadFault arranges for the next ReadExact to fail with ErrInjected.
func (b *Bus) PushReadFault() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, step{failRead: true})
}

// Writes returns every byte slice the driver has written so far, in
// order, for assertions about what was put on the wire.
func (b *Bus) Writes() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.writes))
	copy(out, b.writes)
	return out
}

// Delays returns every DelayMs argument observed, in order.
func (b *Bus) Delays() []uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint32, len(b.delays))
	copy(out, b.delays)
	return out
}

func (b *Bus) popStep() (step, bool) {
	if len(b.pending) == 0 {
		return step{}, false
	}
	s := b.pending[0]
	b.pending = b.pending[1:]
	return s, true
}

// WriteAll implements bus.Bus.
func (b *Bus) WriteAll(addr uint8, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	b.writes = append(b.writes, cp)

	if len(b.pending) > 0 && b.pending[0].failRead {
		// Leave a scripted read fault for the ReadExact it targets.
		return nil
	}
	s, ok := b.popStep()
	if ok && s.failWrite {
		return ErrInjected
	}
	if ok && len(s.response) > 0 {
		b.inbox.Write(s.response)
	}
	if ok {
		return nil
	}
	return nil
}

// ReadExact implements bus.Bus.
func (b *Bus) ReadExact(addr uint8, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inbox.Occupied() == 0 && !(len(b.pending) > 0 && b.pending[0].failWrite) {
		s, ok := b.popStep()
		if ok && s.failRead {
			return ErrInjected
		}
		if ok {
			b.inbox.Write(s.response)
		}
	}

	n := b.inbox.Read(buf)
	if n != len(buf) {
		return errors.New("virtual: script underrun, not enough queued bytes")
	}
	return nil
}

// DelayMs implements bus.Bus; it does not actually sleep, it only
// records the requested delay so tests can assert on timing behaviour.
func (b *Bus) DelayMs(ms uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays = append(b.delays, ms)
}
