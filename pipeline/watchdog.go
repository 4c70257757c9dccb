package pipeline

import (
	"time"

	"murmur/log"
)

// watchdog is one recording session's liveness checker. stop ends the
// loop; done closes when the goroutine has exited.
type watchdog struct {
	stop chan struct{}
	done chan struct{}
}

func (c *Controller) startWatchdog() {
	wd := &watchdog{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	c.state.mu.Lock()
	c.state.wd = wd
	c.state.mu.Unlock()
	go c.runWatchdog(wd)
}

// signalWatchdog tells the current watchdog to exit without waiting for
// it. Safe when the caller may be running on the watchdog goroutine.
func (c *Controller) signalWatchdog() *watchdog {
	c.state.mu.Lock()
	wd := c.state.wd
	c.state.wd = nil
	c.state.mu.Unlock()
	if wd != nil {
		close(wd.stop)
	}
	return wd
}

// stopWatchdog signals and waits for the watchdog goroutine to exit.
// Called from toggle-off while holding the stream lock, which is safe:
// the watchdog never blocks on that lock, it only try-acquires it.
func (c *Controller) stopWatchdog() {
	if wd := c.signalWatchdog(); wd != nil {
		<-wd.done
	}
}

// runWatchdog polls the heartbeat while the session records. Each tick
// snapshots the registers, releases everything, then compares elapsed
// monotonic time; it holds no locks when calling into the restart
// coordinator. A successful restart resets the heartbeat, so one stall
// episode yields one restart attempt, not a storm.
func (c *Controller) runWatchdog(wd *watchdog) {
	defer close(wd.done)

	ticker := time.NewTicker(c.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wd.stop:
			return
		case <-ticker.C:
			if c.state.currentMode() != Recording {
				return
			}
			last := time.Duration(c.state.lastHeartbeat.Load())
			elapsed := c.now() - last
			if elapsed <= c.cfg.StallThreshold {
				continue
			}
			log.Warnf("watchdog: no capture callbacks for %v", elapsed.Round(time.Millisecond))
			c.requestRestart("watchdog stall")
		}
	}
}
