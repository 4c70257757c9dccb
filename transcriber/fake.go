package transcriber

import (
	"context"
	"sync"
	"time"
)

// FakeEngine is a test double. It records every Transcribe call and
// returns a fixed text or error, optionally after a delay so tests can
// observe the transcribing phase.
type FakeEngine struct {
	text  string
	err   error
	delay time.Duration
	lang  string

	mu    sync.Mutex
	calls [][]byte
}

func NewFake(text string, err error) *FakeEngine {
	return &FakeEngine{text: text, err: err}
}

func (f *FakeEngine) SetDelay(d time.Duration) { f.delay = d }

func (f *FakeEngine) Name() string           { return "fake" }
func (f *FakeEngine) SetLanguage(lang string) { f.lang = lang }
func (f *FakeEngine) Language() string        { return f.lang }

func (f *FakeEngine) Transcribe(ctx context.Context, data []byte, _ string) (string, error) {
	f.mu.Lock()
	buf := make([]byte, len(data))
	copy(buf, data)
	f.calls = append(f.calls, buf)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// Calls returns the audio payloads of every call so far.
func (f *FakeEngine) Calls() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times Transcribe has been invoked.
func (f *FakeEngine) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
