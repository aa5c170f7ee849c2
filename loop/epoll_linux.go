//go:build linux

package loop

import (
	"encoding/binary"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

type epollEvent struct {
	fd   int
	mask IOMask
}

type epollBackend struct {
	epfd int
}

func openBackend() (backend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &epollBackend{epfd: fd}, nil
}

func toEpollEvents(mask IOMask) uint32 {
	var ev uint32
	if mask&MaskIn != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&MaskOut != 0 {
		ev |= unix.EPOLLOUT
	}
	// EPOLLHUP and EPOLLERR are always reported by the kernel regardless
	// of the requested event mask; no bit to request them explicitly.
	return ev
}

func fromEpollEvents(ev uint32) IOMask {
	var mask IOMask
	if ev&unix.EPOLLIN != 0 {
		mask |= MaskIn
	}
	if ev&unix.EPOLLOUT != 0 {
		mask |= MaskOut
	}
	if ev&unix.EPOLLHUP != 0 {
		mask |= MaskHUP
	}
	if ev&unix.EPOLLERR != 0 {
		mask |= MaskErr
	}
	return mask
}

func (b *epollBackend) add(fd int, mask IOMask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(mask)}
	ev.Fd = int32(fd)
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (b *epollBackend) del(fd int) error {
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (b *epollBackend) wait(timeoutMs int) ([]epollEvent, error) {
	raw := make([]unix.EpollEvent, 128)
	for {
		n, err := unix.EpollWait(b.epfd, raw, timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, err
		}
		out := make([]epollEvent, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, epollEvent{fd: int(raw[i].Fd), mask: fromEpollEvents(raw[i].Events)})
		}
		return out, nil
	}
}

func (b *epollBackend) close() error {
	return unix.Close(b.epfd)
}

func closeFD(fd int) {
	unix.Close(fd)
}

func newEventfd() (int, error) {
	return unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
}

func bumpEventfd(fd int) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(fd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}

func drainEventfd(fd int) uint64 {
	var buf [8]byte
	n, err := unix.Read(fd, buf[:])
	if err != nil || n != 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func newTimerfd() (int, error) {
	return unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
}

func setTimer(fd int, d time.Duration, periodic bool) error {
	var spec unix.ItimerSpec
	if d > 0 {
		spec.Value = unix.NsecToTimespec(d.Nanoseconds())
		if periodic {
			spec.Interval = spec.Value
		}
	}
	return unix.TimerfdSettime(fd, 0, &spec, nil)
}

func drainTimerfd(fd int) {
	var buf [8]byte
	unix.Read(fd, buf[:])
}

func newSignalfd(signum int) (int, error) {
	var set unix.Sigset_t
	addSignal(&set, signum)
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &set, nil); err != nil {
		return 0, err
	}
	fd, err := unix.Signalfd(-1, &set, unix.SFD_CLOEXEC|unix.SFD_NONBLOCK)
	if err != nil {
		return 0, err
	}
	return fd, nil
}

func addSignal(set *unix.Sigset_t, signum int) {
	// Sigset_t is a fixed-size bit array; word size matches the platform
	// long, 64 bits on every linux/amd64|arm64 target this loop runs on.
	word := (signum - 1) / 64
	bit := uint((signum - 1) % 64)
	set.Val[word] |= 1 << bit
}

func readSignalfd(fd int) (int, bool) {
	var info unix.SignalfdSiginfo
	size := int(unsafe.Sizeof(info))
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&info)), size)
	n, err := unix.Read(fd, buf)
	if err != nil || n < size {
		return 0, false
	}
	return int(info.Signo), true
}
