package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"murmur/audio"
	"murmur/transcriber"
)

func TestToggleRecordTranscribe(t *testing.T) {
	ctx := audio.NewFakeContext(testDevices()...)
	startPumper(t, ctx)
	eng := transcriber.NewFake("hello world", nil)
	notifier := &fakeNotifier{}
	sink := &textSink{}

	c := New(testConfig(ctx, eng, notifier, sink.put))

	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if got := c.Mode(); got != Recording {
		t.Fatalf("mode after toggle on = %s, want recording", got)
	}
	if devs := notifier.startedDevices(); len(devs) != 1 || devs[0] != "Built-in Microphone" {
		t.Errorf("started notifications = %v, want [Built-in Microphone]", devs)
	}
	if c.CallbackCount() < 3 {
		t.Errorf("callback count after verified start = %d, want >= 3", c.CallbackCount())
	}

	// Let some audio accumulate past the minimum.
	time.Sleep(20 * time.Millisecond)

	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	waitFor(t, time.Second, func() bool { return c.Mode() == Idle }, "mode to return to idle")

	if got := eng.CallCount(); got != 1 {
		t.Errorf("engine calls = %d, want 1", got)
	}
	if texts := sink.all(); len(texts) != 1 || texts[0] != "hello world" {
		t.Errorf("output texts = %v, want [hello world]", texts)
	}
	if notifier.stoppedCount() != 1 {
		t.Errorf("stopped notifications = %d, want 1", notifier.stoppedCount())
	}
	if live := ctx.LiveCaptures(); live != 0 {
		t.Errorf("live captures after session = %d, want 0", live)
	}
}

func TestToggleRejectedWhileTranscribing(t *testing.T) {
	ctx := audio.NewFakeContext(testDevices()...)
	startPumper(t, ctx)
	eng := transcriber.NewFake("slow", nil)
	eng.SetDelay(150 * time.Millisecond)

	c := New(testConfig(ctx, eng, &fakeNotifier{}, nil))

	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	waitFor(t, time.Second, func() bool { return c.Mode() == Transcribing }, "transcribing phase")

	if err := c.Toggle(); !errors.Is(err, ErrBusy) {
		t.Errorf("toggle during transcription = %v, want ErrBusy", err)
	}
	waitFor(t, time.Second, func() bool { return c.Mode() == Idle }, "mode to return to idle")

	// The rejected toggle must not have opened a second stream.
	if got := len(ctx.Captures()); got != 1 {
		t.Errorf("captures created = %d, want 1", got)
	}
}

func TestStartupVerificationFailure(t *testing.T) {
	// No pumper: the stream starts but never delivers a callback.
	ctx := audio.NewFakeContext(testDevices()...)
	notifier := &fakeNotifier{}

	cfg := testConfig(ctx, transcriber.NewFake("", nil), notifier, nil)
	cfg.StartupWindow = 50 * time.Millisecond
	c := New(cfg)

	if err := c.Toggle(); !errors.Is(err, ErrStartupVerification) {
		t.Fatalf("toggle on silent stream = %v, want ErrStartupVerification", err)
	}
	if got := c.Mode(); got != Idle {
		t.Errorf("mode after failed start = %s, want idle", got)
	}
	if live := ctx.LiveCaptures(); live != 0 {
		t.Errorf("live captures after failed start = %d, want 0", live)
	}
	if errs := notifier.errors(); len(errs) != 1 {
		t.Errorf("error notifications = %d, want 1", len(errs))
	}
}

func TestToggleWithoutAnyDevice(t *testing.T) {
	ctx := audio.NewFakeContext() // empty registry
	notifier := &fakeNotifier{}
	c := New(testConfig(ctx, transcriber.NewFake("", nil), notifier, nil))

	if err := c.Toggle(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("toggle with no devices = %v, want ErrDeviceUnavailable", err)
	}
	if got := c.Mode(); got != Idle {
		t.Errorf("mode = %s, want idle", got)
	}
	if errs := notifier.errors(); len(errs) != 1 {
		t.Errorf("error notifications = %d, want 1", len(errs))
	}
}

func TestToggleLockTimeoutForcesIdle(t *testing.T) {
	ctx := audio.NewFakeContext(testDevices()...)
	notifier := &fakeNotifier{}

	cfg := testConfig(ctx, transcriber.NewFake("", nil), notifier, nil)
	cfg.LockTimeout = 30 * time.Millisecond
	c := New(cfg)

	// Another operation holds the stream lock and never lets go.
	if !c.lock.TryAcquire() {
		t.Fatal("stream lock unexpectedly held")
	}
	defer c.lock.Release()

	if err := c.Toggle(); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("toggle under held lock = %v, want ErrLockTimeout", err)
	}
	if got := c.Mode(); got != Idle {
		t.Errorf("mode after abandoned start = %s, want idle", got)
	}
	if errs := notifier.errors(); len(errs) != 1 {
		t.Errorf("error notifications = %d, want 1", len(errs))
	}
	if got := len(ctx.Captures()); got != 0 {
		t.Errorf("captures created = %d, want 0", got)
	}
}

// A toggle-off that times out on the stream lock abandons the session but
// cannot destroy the stream it does not own. The audio that stream keeps
// capturing must not bleed into the next session's drain.
func TestStaleStreamAudioDiscardedOnNextStart(t *testing.T) {
	ctx := audio.NewFakeContext(testDevices()...)
	startPumper(t, ctx)
	eng := transcriber.NewFake("text", nil)
	notifier := &fakeNotifier{}
	sink := &textSink{}

	cfg := testConfig(ctx, eng, notifier, sink.put)
	cfg.StallThreshold = time.Hour
	cfg.LockTimeout = 30 * time.Millisecond
	cfg.MinAudio = 10 * time.Second
	c := New(cfg)

	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle on: %v", err)
	}

	if !c.lock.TryAcquire() {
		t.Fatal("stream lock unexpectedly held")
	}
	if err := c.Toggle(); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("toggle off under held lock = %v, want ErrLockTimeout", err)
	}
	c.lock.Release()

	// Twenty seconds of audio land in the abandoned session's queue.
	c.queue.Load().append(Chunk{Samples: make([]byte, 16000*20*2), Frames: 16000 * 20})

	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle on after abandonment: %v", err)
	}
	if live := ctx.LiveCaptures(); live != 1 {
		t.Fatalf("live captures = %d, want 1 (stale stream must be gone)", live)
	}
	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	waitFor(t, time.Second, func() bool { return c.Mode() == Idle }, "idle")

	// The new session recorded well under a second. Had the stale twenty
	// seconds survived into this drain it would have cleared the minimum
	// and reached the engine.
	if got := eng.CallCount(); got != 0 {
		t.Errorf("engine calls = %d, want 0 (stale audio reached the drain)", got)
	}
	if texts := sink.all(); len(texts) != 0 {
		t.Errorf("output texts = %v, want none", texts)
	}
}

// Concurrent toggles from many goroutines must converge to a consistent
// state with at most one live stream at any instant.
func TestConcurrentTogglesConverge(t *testing.T) {
	ctx := audio.NewFakeContext(testDevices()...)
	startPumper(t, ctx)
	eng := transcriber.NewFake("text", nil)

	c := New(testConfig(ctx, eng, &fakeNotifier{}, nil))

	var maxLive atomic.Int64
	monitorStop := make(chan struct{})
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		for {
			select {
			case <-monitorStop:
				return
			default:
			}
			if n := int64(ctx.LiveCaptures()); n > maxLive.Load() {
				maxLive.Store(n)
			}
			time.Sleep(time.Millisecond)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				c.Toggle() // rejections and failures are fine, hangs are not
				time.Sleep(5 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	// Settle: finish any in-flight drain, then close an open session.
	waitFor(t, 2*time.Second, func() bool {
		m := c.Mode()
		return m == Idle || m == Recording
	}, "session to settle")
	if c.Mode() == Recording {
		if err := c.Toggle(); err != nil {
			t.Fatalf("final toggle off: %v", err)
		}
	}
	waitFor(t, 2*time.Second, func() bool { return c.Mode() == Idle }, "final idle")

	close(monitorStop)
	<-monitorDone

	if got := maxLive.Load(); got > 1 {
		t.Errorf("observed %d concurrent live streams, want at most 1", got)
	}
	if live := ctx.LiveCaptures(); live != 0 {
		t.Errorf("live captures after convergence = %d, want 0", live)
	}
}
