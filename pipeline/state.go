package pipeline

import (
	"sync"
	"sync/atomic"

	"murmur/audio"
)

// Mode is the global session mode. Transitions are serialized through the
// state lock; Draining and Transcribing are momentary phases during which
// toggle requests are rejected.
type Mode int

const (
	Idle Mode = iota
	Recording
	Draining
	Transcribing
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Draining:
		return "draining"
	case Transcribing:
		return "transcribing"
	default:
		return "unknown"
	}
}

// sessionState holds the scalar registers shared across the control
// threads, the watchdog, the device monitor and the audio callback.
//
// Lock discipline: mu (the state lock) guards mode, streamHealthy,
// restartFailures, device and the watchdog handle, and is held only for
// the duration of a read or write of those fields. It must never be held
// while acquiring the stream lock. callbackCount and lastHeartbeat are
// lock-light registers: the real-time callback increments/overwrites them
// without taking any lock.
type sessionState struct {
	mu              sync.Mutex
	mode            Mode
	streamHealthy   bool
	restartFailures int
	device          *audio.DeviceInfo // cached default input device
	wd              *watchdog

	callbackCount atomic.Int64
	lastHeartbeat atomic.Int64 // nanoseconds on the controller's monotonic base
}

func (s *sessionState) currentMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *sessionState) setMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

func (s *sessionState) cachedDevice() *audio.DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}
