package loop

import (
	"fmt"
	"time"
)

// AddIOSource registers fd for dispatch under mask. The loop does not own
// fd; the caller is responsible for closing it after RemoveSource.
func (l *Loop) AddIOSource(fd int, mask IOMask, handler IOHandler) (*Source, error) {
	s := &Source{kind: KindIO, fd: fd, mask: mask, enabled: true, ioHandler: handler}
	if err := l.backend.add(fd, mask); err != nil {
		return nil, fmt.Errorf("loop: add io source: %w", err)
	}
	l.register(s)
	return s, nil
}

// AddIdleSource registers handler to fire on every iterate pass that
// observed no I/O, timer, event, or signal activity, as long as the
// source is enabled (idle sources start enabled).
func (l *Loop) AddIdleSource(handler IdleHandler) *Source {
	s := &Source{kind: KindIdle, fd: -1, enabled: true, idleHandler: handler}
	l.register(s)
	return s
}

// AddEventSource creates a source fired by SignalEvent from any goroutine.
// Multiple SignalEvent calls between iterate passes coalesce into one
// dispatch carrying the accumulated count.
func (l *Loop) AddEventSource(handler EventHandler) (*Source, error) {
	fd, err := newEventfd()
	if err != nil {
		return nil, fmt.Errorf("loop: add event source: %w", err)
	}
	s := &Source{kind: KindEvent, fd: fd, enabled: true, eventHandler: handler}
	if err := l.backend.add(fd, MaskIn); err != nil {
		closeFD(fd)
		return nil, fmt.Errorf("loop: add event source: %w", err)
	}
	l.register(s)
	return s, nil
}

// SignalEvent is the loop's only thread-safe API: it may be called from
// any goroutine to wake the loop thread and fire src's EventHandler on
// its next iterate pass.
func (l *Loop) SignalEvent(src *Source) error {
	if src.kind != KindEvent {
		return fmt.Errorf("loop: SignalEvent on non-event source")
	}
	return bumpEventfd(src.fd)
}

// AddTimerSource creates a disarmed timer source. Call UpdateTimer to arm
// it.
func (l *Loop) AddTimerSource(handler TimerHandler) (*Source, error) {
	fd, err := newTimerfd()
	if err != nil {
		return nil, fmt.Errorf("loop: add timer source: %w", err)
	}
	s := &Source{kind: KindTimer, fd: fd, enabled: true, timerHandler: handler}
	if err := l.backend.add(fd, MaskIn); err != nil {
		closeFD(fd)
		return nil, fmt.Errorf("loop: add timer source: %w", err)
	}
	l.register(s)
	return s, nil
}

// UpdateTimer (re)arms src to fire once after d, or periodically every d
// if periodic is true. d <= 0 disarms it.
func (l *Loop) UpdateTimer(src *Source, d time.Duration, periodic bool) error {
	if src.kind != KindTimer {
		return fmt.Errorf("loop: UpdateTimer on non-timer source")
	}
	return setTimer(src.fd, d, periodic)
}

// AddSignalSource blocks signum on the calling thread (pthread_sigmask) and
// registers handler to fire when signum is read from a signalfd.
// RemoveSource closes the signalfd but does not unblock the signal.
func (l *Loop) AddSignalSource(signum int, handler SignalHandler) (*Source, error) {
	fd, err := newSignalfd(signum)
	if err != nil {
		return nil, fmt.Errorf("loop: add signal source: %w", err)
	}
	s := &Source{kind: KindSignal, fd: fd, enabled: true, signum: signum, signalHandler: handler}
	if err := l.backend.add(fd, MaskIn); err != nil {
		closeFD(fd)
		return nil, fmt.Errorf("loop: add signal source: %w", err)
	}
	l.register(s)
	return s, nil
}
