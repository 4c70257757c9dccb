package pipeline

import (
	"fmt"
	"time"

	"murmur/audio"
)

// captureStream owns one OS-level input stream bound to a device. The
// handle is touched only while holding the controller's stream lock.
type captureStream struct {
	handle audio.CaptureDevice
	device *audio.DeviceInfo
}

func (s *captureStream) deviceName() string {
	return s.handle.DeviceName()
}

// destroy tears the stream down: no callbacks are delivered after it
// returns. Old handles are always destroyed before a replacement is
// created, so at most one live handle exists per session.
func (s *captureStream) destroy() {
	s.handle.Stop()
	s.handle.ClearCallback()
	s.handle.Close()
}

// openVerifiedStream creates a stream on device, registers the capture
// callback, starts delivery and runs startup verification. On any failure
// the partial stream is destroyed before returning. Caller must hold the
// stream lock.
func (c *Controller) openVerifiedStream(device *audio.DeviceInfo) (*captureStream, error) {
	baseline := c.state.callbackCount.Load()

	handle, err := c.cfg.Audio.NewCapture(device, c.cfg.Capture)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamCreation, err)
	}
	handle.SetCallback(c.onAudio)
	if err := handle.Start(); err != nil {
		handle.ClearCallback()
		handle.Close()
		return nil, fmt.Errorf("%w: %v", ErrStreamCreation, err)
	}

	stream := &captureStream{handle: handle, device: device}
	if err := c.verifyStartup(baseline); err != nil {
		stream.destroy()
		return nil, err
	}

	c.state.lastHeartbeat.Store(int64(c.now()))
	return stream, nil
}

// onAudio is the capture callback. It runs on the OS audio engine's
// thread and must complete in constant time: copy the buffer into a
// chunk, append it, bump the counter, overwrite the heartbeat. Nothing
// here may block and nothing here calls the engine.
func (c *Controller) onAudio(data []byte, frameCount uint32) {
	q := c.queue.Load()
	if q == nil {
		return
	}
	samples := make([]byte, len(data))
	copy(samples, data)
	q.append(Chunk{Samples: samples, Frames: frameCount, At: c.now()})

	c.state.callbackCount.Add(1)
	c.state.lastHeartbeat.Store(int64(c.now()))
}

// verifyStartup waits up to the startup window for the callback counter
// to advance past baseline by the configured threshold. This is the only
// deliberate wait in the pipeline besides the engine call itself.
func (c *Controller) verifyStartup(baseline int64) error {
	deadline := time.Now().Add(c.cfg.StartupWindow)
	for {
		if c.state.callbackCount.Load()-baseline >= c.cfg.StartupCallbacks {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrStartupVerification
		}
		time.Sleep(verifyPollInterval)
	}
}
