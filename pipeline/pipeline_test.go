package pipeline

import (
	"sync"
	"testing"
	"time"

	"murmur/audio"
)

func testDevices() []audio.DeviceInfo {
	return []audio.DeviceInfo{
		{ID: "dev-1", Name: "Built-in Microphone"},
		{ID: "dev-2", Name: "USB Microphone"},
	}
}

// testConfig shrinks every timing knob so recovery paths fire within a
// few milliseconds of fake time.
func testConfig(ctx audio.Context, eng Engine, n Notifier, out func(string)) Config {
	return Config{
		Audio:    ctx,
		Capture:  audio.CaptureConfig{SampleRate: 16000, Channels: 1},
		Engine:   eng,
		Notifier: n,
		Output:   out,

		StartupWindow:    400 * time.Millisecond,
		StartupCallbacks: 3,
		WatchdogInterval: 10 * time.Millisecond,
		StallThreshold:   60 * time.Millisecond,
		LockTimeout:      time.Second,
		MinAudio:         time.Millisecond,
	}
}

// pumper stands in for the OS audio engine's real-time thread: it feeds
// every live fake capture a 10ms buffer each millisecond, except captures
// that have been denied to simulate a stalled stream.
type pumper struct {
	ctx *audio.FakeContext

	mu   sync.Mutex
	deny map[*audio.FakeCapture]bool

	stop chan struct{}
	done chan struct{}
}

func startPumper(t *testing.T, ctx *audio.FakeContext) *pumper {
	t.Helper()
	p := &pumper{
		ctx:  ctx,
		deny: make(map[*audio.FakeCapture]bool),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go p.run()
	t.Cleanup(p.Stop)
	return p
}

func (p *pumper) run() {
	defer close(p.done)
	buf := make([]byte, 320) // 160 frames of 16-bit mono, 10ms at 16kHz
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			for _, c := range p.ctx.Captures() {
				p.mu.Lock()
				denied := p.deny[c]
				p.mu.Unlock()
				if !denied {
					c.Pump(buf, 160)
				}
			}
		}
	}
}

// Deny stops feeding one capture, simulating a silently dead stream.
func (p *pumper) Deny(c *audio.FakeCapture) {
	p.mu.Lock()
	p.deny[c] = true
	p.mu.Unlock()
}

func (p *pumper) Stop() {
	select {
	case <-p.stop:
		return
	default:
	}
	close(p.stop)
	<-p.done
}

type fakeNotifier struct {
	mu      sync.Mutex
	started []string
	stopped int
	errs    []error
}

func (n *fakeNotifier) RecordingStarted(device string) {
	n.mu.Lock()
	n.started = append(n.started, device)
	n.mu.Unlock()
}

func (n *fakeNotifier) RecordingStopped() {
	n.mu.Lock()
	n.stopped++
	n.mu.Unlock()
}

func (n *fakeNotifier) RecordingError(err error) {
	n.mu.Lock()
	n.errs = append(n.errs, err)
	n.mu.Unlock()
}

func (n *fakeNotifier) startedDevices() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.started))
	copy(out, n.started)
	return out
}

func (n *fakeNotifier) stoppedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopped
}

func (n *fakeNotifier) errors() []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]error, len(n.errs))
	copy(out, n.errs)
	return out
}

// textSink collects Output deliveries.
type textSink struct {
	mu    sync.Mutex
	texts []string
}

func (s *textSink) put(text string) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
}

func (s *textSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
