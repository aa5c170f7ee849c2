package loop

// backend is the platform multiplexer behind a Loop, shaped after
// connstate's poller interface (add/del registration plus a blocking
// wait), with add/del keyed by fd+mask instead of a single fdOperator so
// one backend instance can serve many unrelated sources.
type backend interface {
	add(fd int, mask IOMask) error
	del(fd int) error
	wait(timeoutMs int) ([]epollEvent, error)
	close() error
}
