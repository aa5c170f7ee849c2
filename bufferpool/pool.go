package bufferpool

import (
	"fmt"
	"sync"

	"github.com/graphkit/graphd/concurrency/gopool"
	"github.com/graphkit/graphd/container/ring"
	"github.com/graphkit/graphd/errs"
)

// Pool is the FIFO queue of available buffers described by §4.3, protected
// by a single lock and condition variable, with an external flushing flag.
// It is thread-local to one Transport Endpoint.
type Pool struct {
	mu        sync.Mutex
	cond      *sync.Cond
	table     *ring.Ring[*Entry] // fixed backing table, indexed by Entry.ID
	available []uint32           // FIFO queue of available entry ids
	flushing  bool

	alloc  Allocator
	notify func(flushing bool)
}

// New builds a Pool of count buffers, each bufSize bytes, carved out of
// alloc. All buffers start in the available queue.
func New(alloc Allocator, count int, bufSize uint32) (*Pool, error) {
	entries := make([]*Entry, count)
	for i := 0; i < count; i++ {
		data := alloc.Alloc(int(bufSize))
		if data == nil {
			return nil, fmt.Errorf("bufferpool: arena exhausted after %d of %d buffers: %w", i, count, errs.ErrNoMemory)
		}
		entries[i] = &Entry{
			ID:    uint32(i),
			Data:  data,
			Chunk: ChunkDescriptor{Size: bufSize},
			state: linkageAvailable,
		}
	}
	p := &Pool{
		table:     ring.NewFromSlice(entries),
		available: make([]uint32, count),
		alloc:     alloc,
	}
	for i := 0; i < count; i++ {
		p.available[i] = uint32(i)
	}
	p.cond = sync.NewCond(&p.mu)
	return p, nil
}

func (p *Pool) entry(id uint32) *Entry {
	item, ok := p.table.Get(int(id))
	if !ok {
		return nil
	}
	return item.Value()
}

// Entry looks up the buffer entry for id, or nil if id is out of range.
// Callers holding a BufferID from a port I/O slot use this to reach the
// underlying bytes without tracking the *Entry returned by Acquire.
func (p *Pool) Entry(id uint32) *Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entry(id)
}

// Add appends buffer to the tail of the available queue and signals one
// waiter. Used when a buffer re-enters the pool outside the normal
// acquire/release cycle (e.g. §8 Scenario D's post-flush add). New
// populates the initial queue itself and does not go through Add.
func (p *Pool) Add(id uint32) {
	p.mu.Lock()
	e := p.entry(id)
	if e != nil {
		e.state = linkageAvailable
	}
	p.available = append(p.available, id)
	p.cond.Signal()
	p.mu.Unlock()
}

// Remove removes id from the available queue by identity, if present.
// Does not wait. Returns whether it was found.
func (p *Pool) Remove(id uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, candidate := range p.available {
		if candidate == id {
			p.available = append(p.available[:i], p.available[i+1:]...)
			if e := p.entry(id); e != nil {
				e.state = linkageRemoved
			}
			return true
		}
	}
	return false
}

// Acquire blocks while the queue is empty and the pool is not flushing,
// then pops the head. If the pool is flushing, returns errs.ErrFlushing
// immediately (or as soon as a blocked waiter is woken by StartFlush).
func (p *Pool) Acquire() (*Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.available) == 0 && !p.flushing {
		p.cond.Wait()
	}
	if p.flushing {
		return nil, errs.ErrFlushing
	}
	id := p.available[0]
	p.available = p.available[1:]
	e := p.entry(id)
	if e != nil {
		e.state = linkageInFlight
	}
	return e, nil
}

// Release appends buffer to the tail of the available queue and signals
// one waiter. Must not block. Double-release (releasing an entry that is
// not currently in-flight) is a caller bug and is not itself detected here,
// matching §4.3's stated invariant.
func (p *Pool) Release(id uint32) {
	p.mu.Lock()
	if e := p.entry(id); e != nil {
		e.state = linkageAvailable
	}
	p.available = append(p.available, id)
	p.mu.Unlock()
	p.cond.Signal()
}

// SetFlushNotifier registers a callback invoked off the pool's lock,
// on the background worker pool, whenever StartFlush/StopFlush transitions
// the flushing flag. Used by a node's control-plane code to log or report
// flush state without that work ever running on the Acquire/Release path.
func (p *Pool) SetFlushNotifier(fn func(flushing bool)) {
	p.mu.Lock()
	p.notify = fn
	p.mu.Unlock()
}

// StartFlush sets the flushing flag and wakes every blocked Acquire caller,
// each of which returns errs.ErrFlushing.
func (p *Pool) StartFlush() {
	p.mu.Lock()
	p.flushing = true
	notify := p.notify
	p.mu.Unlock()
	p.cond.Broadcast()
	if notify != nil {
		gopool.Go(func() { notify(true) })
	}
}

// StopFlush clears the flushing flag.
func (p *Pool) StopFlush() {
	p.mu.Lock()
	p.flushing = false
	notify := p.notify
	p.mu.Unlock()
	if notify != nil {
		gopool.Go(func() { notify(false) })
	}
}

// Available returns the number of buffers currently in the available
// queue.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}
