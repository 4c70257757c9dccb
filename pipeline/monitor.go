package pipeline

import (
	"murmur/log"
)

// StartDeviceMonitor consumes device-change notifications (typically from
// an audio.Watcher) until the returned stop function is called or the
// channel closes. Each notification re-reads the default device from the
// registry: while idle only the cached identity is refreshed, while
// recording the stream is marked unhealthy and routed through the restart
// coordinator onto the new device.
func (c *Controller) StartDeviceMonitor(changes <-chan struct{}) (stop func()) {
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-quit:
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				c.onDeviceChange()
			}
		}
	}()

	return func() {
		close(quit)
		<-done
	}
}

func (c *Controller) onDeviceChange() {
	device, err := c.cfg.Audio.DefaultDevice()

	c.state.mu.Lock()
	mode := c.state.mode
	if err != nil {
		c.state.device = nil
	} else {
		c.state.device = device
	}
	if mode == Recording {
		c.state.streamHealthy = false
	}
	c.state.mu.Unlock()

	if mode != Recording {
		log.Infof("device_change mode=%s device=%q", mode, device.Label())
		return
	}

	log.Infof("device_change mode=recording device=%q", device.Label())
	c.requestRestart("device changed")
}
