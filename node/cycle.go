package node

import (
	"go.uber.org/zap"
)

// Driver wraps one Processor with the per-node bookkeeping the generic
// Node Process Loop needs across cycles: last-seen clock id (to detect a
// clock-domain switch), sync-loss state, and the xrun logging policy
// (§4.5: first occurrence WARN, contiguous repeats DEBUG).
type Driver struct {
	proc Processor
	log  *zap.SugaredLogger
	name string

	haveLastClock   bool
	lastClockID     uint64
	localPosition   uint64
	offset          uint64
	syncLost        bool
	consecutiveXrun int
	firstCycle      bool
}

// NewDriver wraps proc for cycle-by-cycle execution, logging under name.
func NewDriver(name string, proc Processor, log *zap.SugaredLogger) *Driver {
	return &Driver{proc: proc, log: log, name: name, firstCycle: true}
}

// RunCycle executes exactly one cycle per §4.5: consult position, reset the
// DLL on a clock-domain switch, run the wrapped Processor, and apply the
// underrun/overrun/first-cycle-skip policy against the reported available
// buffer-pool depth relative to targetBuffer.
func (d *Driver) RunCycle(cc *CycleContext) error {
	if !d.haveLastClock || cc.Position.ClockID != d.lastClockID {
		if cc.DLL != nil {
			cc.DLL.Init()
		}
		d.offset = cc.Position.Position - d.localPosition
		d.lastClockID = cc.Position.ClockID
		d.haveLastClock = true
	}

	avail := uint32(0)
	if cc.Pool != nil {
		avail = uint32(cc.Pool.Available())
	}

	switch {
	case avail < needed(cc.TargetBuffer):
		d.reportUnderrun()
	case avail > 8*cc.TargetBuffer && cc.TargetBuffer > 0:
		d.reportOverrun(avail, cc.TargetBuffer)
	default:
		d.reportSyncReacquired(avail, cc.TargetBuffer)
	}

	if d.firstCycle && cc.TargetBuffer > 0 && avail > cc.TargetBuffer {
		// First-cycle skip: drainExcess only logs the excess beyond the
		// target; the Driver itself discards nothing.
		d.drainExcess(cc, avail-cc.TargetBuffer)
	}
	d.firstCycle = false

	if err := d.proc.ProcessCycle(cc); err != nil {
		return err
	}

	d.localPosition = cc.Position.Position
	return nil
}

func needed(targetBuffer uint32) uint32 {
	if targetBuffer == 0 {
		return 0
	}
	return targetBuffer
}

func (d *Driver) reportUnderrun() {
	d.syncLost = true
	d.consecutiveXrun++
	if d.consecutiveXrun == 1 {
		d.log.Warnw("underrun", "node", d.name)
	} else {
		d.log.Debugw("underrun", "node", d.name, "count", d.consecutiveXrun)
	}
}

func (d *Driver) reportOverrun(avail, target uint32) {
	d.consecutiveXrun++
	if d.consecutiveXrun == 1 {
		d.log.Warnw("overrun", "node", d.name, "avail", avail, "target", target)
	} else {
		d.log.Debugw("overrun", "node", d.name, "avail", avail, "count", d.consecutiveXrun)
	}
}

func (d *Driver) reportSyncReacquired(avail, target uint32) {
	if d.syncLost && avail >= target {
		d.syncLost = false
		d.consecutiveXrun = 0
	}
}

// drainExcess is a placeholder for discarding stale buffered data beyond
// target on the first cycle after sync; the concrete mechanism (advancing
// a data ring's read index, or releasing surplus pooled buffers) is
// Processor-specific and left to proc.ProcessCycle to observe via
// cc.TargetBuffer.
func (d *Driver) drainExcess(cc *CycleContext, excess uint32) {
	d.log.Debugw("first-cycle skip", "node", d.name, "excess", excess)
}
