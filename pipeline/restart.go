package pipeline

import (
	"errors"

	"murmur/log"
)

// requestRestart replaces the capture stream in place. It is single-flight:
// a CAS guard plus a non-blocking stream-lock attempt mean a request that
// arrives while another restart runs is skipped, never queued. Skips are
// informational, not errors.
//
// Restarts never run while the previously drained queue is still being
// read: destroying and re-verifying a stream mid-transcription would risk
// the in-flight audio for no benefit.
func (c *Controller) requestRestart(reason string) error {
	if !c.restartBusy.CompareAndSwap(false, true) {
		log.Infof("restart_skipped reason=%q cause=%q", reason, "already in progress")
		return nil
	}
	defer c.restartBusy.Store(false)

	if !c.lock.TryAcquire() {
		log.Infof("restart_skipped reason=%q cause=%q", reason, "already in progress")
		return nil
	}
	defer c.lock.Release()

	// Copy state under the state lock, release, then act on the stream.
	c.state.mu.Lock()
	mode := c.state.mode
	device := c.state.device
	c.state.mu.Unlock()

	switch mode {
	case Draining, Transcribing:
		log.Infof("restart_skipped reason=%q cause=%q", reason, "transcription in progress")
		return nil
	case Idle:
		// Nothing to restart; clean up anything an abandoned operation
		// left behind, captured audio included.
		if c.stream != nil {
			c.stream.destroy()
			c.stream = nil
			c.queue.Swap(newChunkQueue())
		}
		log.Infof("restart_skipped reason=%q cause=%q", reason, "not recording")
		return nil
	}

	log.Infof("restart_attempt reason=%q device=%q", reason, device.Label())

	// Old handle goes away before the new one exists.
	if c.stream != nil {
		c.stream.destroy()
		c.stream = nil
	}

	if device == nil {
		def, err := c.cfg.Audio.DefaultDevice()
		if err != nil {
			return c.restartFailed(ErrDeviceUnavailable)
		}
		device = def
		c.state.mu.Lock()
		c.state.device = device
		c.state.mu.Unlock()
	}

	stream, err := c.openVerifiedStream(device)
	if err != nil {
		return c.restartFailed(err)
	}
	c.stream = stream

	c.state.mu.Lock()
	c.state.streamHealthy = true
	c.state.restartFailures = 0
	c.state.mu.Unlock()

	log.Infof("restart_ok device=%q", stream.deviceName())
	return nil
}

// restartFailed escalates: a missing device ends the session immediately,
// anything else gets one more chance before the failure surfaces and the
// session is forced idle.
func (c *Controller) restartFailed(err error) error {
	c.state.mu.Lock()
	c.state.restartFailures++
	c.state.streamHealthy = false
	failures := c.state.restartFailures
	c.state.mu.Unlock()

	log.Errorf("restart failed (attempt %d): %v", failures, err)

	if errors.Is(err, ErrDeviceUnavailable) || failures >= 2 {
		c.forceIdle(err)
	}
	return err
}
