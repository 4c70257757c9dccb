package pipeline

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"murmur/audio"
	"murmur/transcriber"
)

func TestShortRecordingSkipsEngine(t *testing.T) {
	ctx := audio.NewFakeContext(testDevices()...)
	startPumper(t, ctx)
	eng := transcriber.NewFake("should never appear", nil)
	notifier := &fakeNotifier{}
	sink := &textSink{}

	cfg := testConfig(ctx, eng, notifier, sink.put)
	cfg.MinAudio = time.Hour // everything is too short
	c := New(cfg)

	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	waitFor(t, time.Second, func() bool { return c.Mode() == Idle }, "idle")

	if got := eng.CallCount(); got != 0 {
		t.Errorf("engine calls = %d, want 0 for a too-short recording", got)
	}
	if texts := sink.all(); len(texts) != 0 {
		t.Errorf("output texts = %v, want none", texts)
	}
	// Too little audio is a quiet skip, not a user-facing failure.
	if errs := notifier.errors(); len(errs) != 0 {
		t.Errorf("error notifications = %d, want 0", len(errs))
	}
}

func TestTranscriptionErrorNotifies(t *testing.T) {
	ctx := audio.NewFakeContext(testDevices()...)
	startPumper(t, ctx)
	eng := transcriber.NewFake("", errors.New("api down"))
	notifier := &fakeNotifier{}
	sink := &textSink{}

	c := New(testConfig(ctx, eng, notifier, sink.put))

	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	waitFor(t, time.Second, func() bool { return c.Mode() == Idle }, "idle")

	if texts := sink.all(); len(texts) != 0 {
		t.Errorf("output texts = %v, want none", texts)
	}
	errs := notifier.errors()
	if len(errs) != 1 {
		t.Fatalf("error notifications = %d, want 1", len(errs))
	}
	if !errors.Is(errs[0], ErrTranscriptionFailed) {
		t.Errorf("notified error = %v, want ErrTranscriptionFailed", errs[0])
	}
}

func TestOutputTextIsCleaned(t *testing.T) {
	ctx := audio.NewFakeContext(testDevices()...)
	startPumper(t, ctx)
	eng := transcriber.NewFake("we deployed nextjs on versal , yes", nil)
	sink := &textSink{}

	c := New(testConfig(ctx, eng, &fakeNotifier{}, sink.put))

	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(sink.all()) == 1 }, "output delivery")

	want := "we deployed Next.js on Vercel, yes"
	if got := sink.all()[0]; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

// Chunks appended before the drain swap belong to the drained session,
// chunks appended after belong to the next one. Nothing is lost or
// duplicated across the boundary.
func TestDrainBoundaryOwnership(t *testing.T) {
	ctx := audio.NewFakeContext(testDevices()...)
	c := New(testConfig(ctx, transcriber.NewFake("", nil), nil, nil))

	buf := make([]byte, 320)
	for i := 0; i < 40; i++ {
		c.onAudio(buf, 160)
	}

	drained := c.queue.Swap(newChunkQueue())

	for i := 0; i < 5; i++ {
		c.onAudio(buf, 160)
	}

	if got := drained.len(); got != 40 {
		t.Errorf("drained chunks = %d, want 40", got)
	}
	if got := c.queue.Load().len(); got != 5 {
		t.Errorf("post-swap chunks = %d, want 5", got)
	}
}

func TestDrainBoundaryUnderConcurrentCallbacks(t *testing.T) {
	ctx := audio.NewFakeContext(testDevices()...)
	c := New(testConfig(ctx, transcriber.NewFake("", nil), nil, nil))

	const total = 400
	buf := make([]byte, 320)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			c.onAudio(buf, 160)
		}
	}()

	time.Sleep(time.Millisecond)
	drained := c.queue.Swap(newChunkQueue())
	wg.Wait()

	if got := drained.len() + c.queue.Load().len(); got != total {
		t.Errorf("chunks across boundary = %d, want %d", got, total)
	}
}

func TestFramesToDuration(t *testing.T) {
	if got := framesToDuration(16000, 16000); got != time.Second {
		t.Errorf("16000 frames at 16kHz = %v, want 1s", got)
	}
	if got := framesToDuration(4800, 16000); got != 300*time.Millisecond {
		t.Errorf("4800 frames at 16kHz = %v, want 300ms", got)
	}
	if got := framesToDuration(100, 0); got != 0 {
		t.Errorf("zero sample rate = %v, want 0", got)
	}
}

func TestConcatSamplesPreservesOrder(t *testing.T) {
	mk := func(vals ...int16) []byte {
		b := make([]byte, len(vals)*2)
		for i, v := range vals {
			binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
		}
		return b
	}
	chunks := []Chunk{
		{Samples: mk(1, 2, 3), Frames: 3},
		{Samples: mk(4, 5), Frames: 2},
	}
	got := concatSamples(chunks)
	want := []int16{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}
