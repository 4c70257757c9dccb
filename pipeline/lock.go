package pipeline

import "time"

// streamLock serializes ownership of the capture stream handle. It is a
// channel semaphore so recovery paths can attempt acquisition without
// blocking (TryAcquire) and control paths can bound their wait (Acquire).
type streamLock chan struct{}

func newStreamLock() streamLock {
	return make(streamLock, 1)
}

func (l streamLock) TryAcquire() bool {
	select {
	case l <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l streamLock) Acquire(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case l <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

func (l streamLock) Release() {
	<-l
}
