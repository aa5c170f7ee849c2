// Package loop implements the Scheduler / Main Loop (§4.6): a
// single-threaded cooperative event loop multiplexing I/O, Idle, Event,
// Timer, and Signal sources. The backend is a pure-Go epoll poller built
// on golang.org/x/sys/unix, shaped after the pack's BSD kqueue poller
// (connstate/poll_bsd.go) rather than ported from any cgo implementation.
package loop

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is not safe for concurrent use except for SignalEvent, per §4.6:
// "signal_event is the only thread-safe API; every other operation on
// sources must happen on the loop thread."
type Loop struct {
	backend backend

	mu      sync.Mutex // guards the maps below; held only outside iterate's hot path
	sources map[uint64]*Source
	byFD    map[int]*Source
	nextID  uint64

	idle []*Source

	entered int32 // reentrancy guard for enter/leave

	closed bool
}

// New opens a Loop backed by the platform poller.
func New() (*Loop, error) {
	b, err := openBackend()
	if err != nil {
		return nil, fmt.Errorf("loop: open backend: %w", err)
	}
	return &Loop{
		backend: b,
		sources: make(map[uint64]*Source),
		byFD:    make(map[int]*Source),
	}, nil
}

// Close tears down the loop's backend and every fd-owning source it still
// holds (timers, signalfds, eventfds). It does not close caller-owned I/O
// source fds.
func (l *Loop) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for _, s := range l.sources {
		if s.kind == KindEvent || s.kind == KindTimer || s.kind == KindSignal {
			closeFD(s.fd)
		}
	}
	return l.backend.close()
}

// enter brackets one iterate() dispatch pass. Per §4.6, no source callback
// may reenter enter; violating that is a programming error and panics
// rather than deadlocking, since the loop has no lock to deadlock on.
func (l *Loop) enter() {
	if !atomic.CompareAndSwapInt32(&l.entered, 0, 1) {
		panic("loop: enter() called reentrantly from a source callback")
	}
}

func (l *Loop) leave() {
	atomic.StoreInt32(&l.entered, 0)
}

func (l *Loop) register(s *Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	s.id = l.nextID
	l.sources[s.id] = s
	if s.fd >= 0 {
		l.byFD[s.fd] = s
	}
	if s.kind == KindIdle {
		l.idle = append(l.idle, s)
	}
}

// RemoveSource unregisters src. Permitted from within src's own callback;
// §4.6 guarantees further fires that cycle are suppressed via the removed
// flag checked at dispatch time.
func (l *Loop) RemoveSource(src *Source) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	src.removed = true
	src.enabled = false
	delete(l.sources, src.id)
	if src.fd >= 0 {
		delete(l.byFD, src.fd)
		if src.kind != KindIO {
			closeFD(src.fd)
		} else if err := l.backend.del(src.fd); err != nil {
			return err
		}
	}
	if src.kind == KindIdle {
		for i, s := range l.idle {
			if s == src {
				l.idle = append(l.idle[:i], l.idle[i+1:]...)
				break
			}
		}
	}
	return nil
}

// EnableIdle toggles whether an idle source participates in dispatch.
func (l *Loop) EnableIdle(src *Source, enabled bool) {
	src.enabled = enabled
}

// Iterate returns after at most one timeout period with one dispatch pass.
// A negative timeout blocks until any source fires.
func (l *Loop) iterate(timeout time.Duration) error {
	l.enter()
	defer l.leave()

	timeoutMs := -1
	if timeout >= 0 {
		timeoutMs = int(timeout / time.Millisecond)
	}

	events, err := l.backend.wait(timeoutMs)
	if err != nil {
		return err
	}

	fired := false
	for _, ev := range events {
		l.mu.Lock()
		s := l.byFD[ev.fd]
		l.mu.Unlock()
		if s == nil || s.removed {
			continue
		}
		fired = true
		l.dispatch(s, ev.mask)
	}

	if !fired {
		l.runIdle()
	}
	return nil
}

// Iterate is the exported form of iterate, for callers driving the loop
// directly (tests, and graphd's own run loop).
func (l *Loop) Iterate(timeout time.Duration) error { return l.iterate(timeout) }

func (l *Loop) dispatch(s *Source, mask IOMask) {
	switch s.kind {
	case KindIO:
		if s.ioHandler != nil {
			s.ioHandler(s, s.fd, mask)
		}
	case KindEvent:
		count := drainEventfd(s.fd)
		if count > 0 && s.eventHandler != nil {
			s.eventHandler(s, count)
		}
	case KindTimer:
		drainTimerfd(s.fd)
		if s.timerHandler != nil {
			s.timerHandler(s)
		}
	case KindSignal:
		signum, ok := readSignalfd(s.fd)
		if ok && s.signalHandler != nil {
			s.signalHandler(s, signum)
		}
	}
}

func (l *Loop) runIdle() {
	l.mu.Lock()
	snapshot := append([]*Source(nil), l.idle...)
	l.mu.Unlock()
	for _, s := range snapshot {
		if s.removed || !s.enabled {
			continue
		}
		if s.idleHandler != nil {
			s.idleHandler(s)
		}
	}
}
