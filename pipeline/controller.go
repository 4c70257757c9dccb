package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"murmur/audio"
	"murmur/log"
)

// Engine is the external transcription engine: a blocking black box from
// encoded audio to text. It reports failures as errors rather than
// terminating the process.
type Engine interface {
	Transcribe(ctx context.Context, data []byte, format string) (string, error)
}

// Notifier receives user-visible start/stop/error events. Implementations
// must be safe to call from any goroutine.
type Notifier interface {
	RecordingStarted(device string)
	RecordingStopped()
	RecordingError(err error)
}

// Config wires the controller's collaborators and tunes its timing. Zero
// durations fall back to defaults; Notifier and Output may be nil.
type Config struct {
	Audio   audio.Context
	Capture audio.CaptureConfig
	Engine  Engine

	Notifier Notifier
	Output   func(text string) // receives the final transcript, at most once per drain

	StartupWindow    time.Duration // max wait for first callbacks on a new stream
	StartupCallbacks int64         // callbacks required within the window
	WatchdogInterval time.Duration
	StallThreshold   time.Duration // heartbeat age that counts as a stall
	LockTimeout      time.Duration // bound on stream-lock waits from control paths
	MinAudio         time.Duration // drains shorter than this skip the engine
}

const (
	defaultStartupWindow    = 750 * time.Millisecond
	defaultStartupCallbacks = 5
	defaultWatchdogInterval = 500 * time.Millisecond
	defaultStallThreshold   = 2 * time.Second
	defaultLockTimeout      = 3 * time.Second
	defaultMinAudio         = 300 * time.Millisecond

	verifyPollInterval = 10 * time.Millisecond
)

func (cfg *Config) applyDefaults() {
	if cfg.StartupWindow <= 0 {
		cfg.StartupWindow = defaultStartupWindow
	}
	if cfg.StartupCallbacks <= 0 {
		cfg.StartupCallbacks = defaultStartupCallbacks
	}
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = defaultWatchdogInterval
	}
	if cfg.StallThreshold <= 0 {
		cfg.StallThreshold = defaultStallThreshold
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	if cfg.MinAudio <= 0 {
		cfg.MinAudio = defaultMinAudio
	}
}

// Controller owns the capture pipeline: it opens and closes streams on
// toggle, keeps the session mode consistent under concurrent toggles,
// and routes watchdog and device-monitor recovery through the restart
// coordinator.
//
// Two locks exist. The state lock (state.mu) guards the scalar session
// registers. The stream lock guards the stream handle and the restart
// sequence. The stream lock is never acquired while the state lock is
// held: paths needing both copy state first, release, then act on the
// stream.
type Controller struct {
	cfg   Config
	state sessionState

	// stream is the current capture handle. Owned by whoever holds the
	// stream lock; nil whenever no stream exists.
	lock   streamLock
	stream *captureStream

	restartBusy atomic.Bool

	// queue is the live chunk queue the callback appends to. Replaced
	// wholesale at each drain boundary.
	queue atomic.Pointer[chunkQueue]

	monoBase time.Time
}

func New(cfg Config) *Controller {
	cfg.applyDefaults()
	c := &Controller{
		cfg:      cfg,
		lock:     newStreamLock(),
		monoBase: time.Now(),
	}
	c.queue.Store(newChunkQueue())
	return c
}

// now returns elapsed monotonic time since controller construction. All
// heartbeat arithmetic uses this, never wall-clock timestamps.
func (c *Controller) now() time.Duration {
	return time.Since(c.monoBase)
}

// Mode returns the current session mode.
func (c *Controller) Mode() Mode {
	return c.state.currentMode()
}

// CallbackCount returns the number of capture callbacks delivered since
// construction.
func (c *Controller) CallbackCount() int64 {
	return c.state.callbackCount.Load()
}

// Toggle is the public recording toggle. Safe to call concurrently and
// repeatedly from any goroutine; only clean idle/recording edges are
// accepted, anything else is rejected as a no-op.
func (c *Controller) Toggle() error {
	c.state.mu.Lock()
	switch c.state.mode {
	case Idle:
		c.state.mode = Recording
		c.state.mu.Unlock()
		return c.startRecording()
	case Recording:
		c.state.mode = Draining
		c.state.mu.Unlock()
		return c.stopAndTranscribe()
	default:
		mode := c.state.mode
		c.state.mu.Unlock()
		log.Warnf("toggle rejected: %s in progress", mode)
		return ErrBusy
	}
}

// startRecording runs the toggle-on sequence. Mode has already been set
// to Recording; any failure below reverts it.
func (c *Controller) startRecording() error {
	if !c.lock.Acquire(c.cfg.LockTimeout) {
		c.abandonOperation("start", ErrLockTimeout)
		return ErrLockTimeout
	}
	defer c.lock.Release()

	// A stream left behind by an abandoned operation is stale by now, and
	// so is whatever it kept capturing into the live queue.
	if c.stream != nil {
		c.stream.destroy()
		c.stream = nil
		c.queue.Swap(newChunkQueue())
	}

	device, err := c.cfg.Audio.DefaultDevice()
	if err != nil {
		c.abortStart(ErrDeviceUnavailable)
		return ErrDeviceUnavailable
	}
	c.state.mu.Lock()
	c.state.device = device
	c.state.mu.Unlock()

	stream, err := c.openVerifiedStream(device)
	if err != nil {
		c.abortStart(err)
		return err
	}
	c.stream = stream

	c.state.mu.Lock()
	c.state.streamHealthy = true
	c.state.restartFailures = 0
	c.state.mu.Unlock()

	c.startWatchdog()

	log.Infof("recording_started device=%q", stream.deviceName())
	if c.cfg.Notifier != nil {
		c.cfg.Notifier.RecordingStarted(stream.deviceName())
	}
	return nil
}

// abortStart reverts a failed toggle-on to idle and surfaces the error
// once. A concurrent toggle-off that moved the mode to Draining while we
// were verifying is overridden: there is no stream to drain.
func (c *Controller) abortStart(err error) {
	c.state.setMode(Idle)
	log.Errorf("recording start failed: %v", err)
	if c.cfg.Notifier != nil {
		c.cfg.Notifier.RecordingError(err)
	}
}

// stopAndTranscribe runs the toggle-off sequence: stop the watchdog,
// destroy the stream, swap the queue at the drain boundary and hand it to
// the transcription worker. Mode has already been set to Draining.
func (c *Controller) stopAndTranscribe() error {
	// A restart in flight holds the stream lock for at most its startup
	// verification window, so this wait is bounded in normal operation.
	if !c.lock.Acquire(c.cfg.LockTimeout) {
		c.abandonOperation("stop", ErrLockTimeout)
		return ErrLockTimeout
	}

	c.stopWatchdog()

	stream := c.stream
	c.stream = nil
	if stream == nil {
		// Startup verification failed while this toggle-off waited on the
		// stream lock; the session was already reverted. Nothing to drain.
		c.lock.Release()
		c.state.mu.Lock()
		if c.state.mode == Draining {
			c.state.mode = Idle
		}
		c.state.mu.Unlock()
		log.Warn("toggle off: no live stream, session already closed")
		return nil
	}

	// Drain boundary: everything appended before the swap belongs to this
	// session, everything after to the next. Destroying the stream first
	// stops the callback before the old queue changes hands.
	stream.destroy()
	drained := c.queue.Swap(newChunkQueue())

	c.state.setMode(Transcribing)
	c.lock.Release()

	log.Infof("recording_stopped chunks=%d", drained.len())
	if c.cfg.Notifier != nil {
		c.cfg.Notifier.RecordingStopped()
	}

	go c.transcribe(drained)
	return nil
}

// abandonOperation handles a lock-timeout on a control path: fatal for
// the operation, never a hang. The session is forced to a known state.
func (c *Controller) abandonOperation(op string, err error) {
	log.Errorf("%s abandoned: %v", op, err)
	c.forceIdle(err)
}

// forceIdle drops the session to idle after an unrecoverable condition
// and surfaces the error once. It signals the watchdog to exit without
// waiting for it, since the watchdog itself may be the caller's ancestor.
func (c *Controller) forceIdle(err error) {
	c.signalWatchdog()
	c.state.mu.Lock()
	c.state.mode = Idle
	c.state.streamHealthy = false
	c.state.mu.Unlock()
	log.Errorf("session forced idle: %v", err)
	if c.cfg.Notifier != nil {
		c.cfg.Notifier.RecordingError(err)
	}
}
