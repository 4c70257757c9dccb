package audio

import (
	"fmt"
	"sync"
)

// FakeContext is a test double for Context. Tests configure the visible
// device list, swap the default device to simulate hotplug, and inject
// capture-creation failures. Captures it hands out are FakeCaptures whose
// callbacks are driven manually via Pump, standing in for the OS audio
// engine's real-time thread.
type FakeContext struct {
	mu         sync.Mutex
	devices    []DeviceInfo
	defaultDev *DeviceInfo
	captureErr error
	captures   []*FakeCapture
}

func NewFakeContext(devices ...DeviceInfo) *FakeContext {
	f := &FakeContext{devices: devices}
	if len(devices) > 0 {
		f.defaultDev = &devices[0]
	}
	return f
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DeviceInfo, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *FakeContext) DefaultDevice() (*DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.defaultDev == nil {
		return nil, fmt.Errorf("no capture devices available")
	}
	d := *f.defaultDev
	return &d, nil
}

// SetDefault swaps the default device, simulating an OS device change.
// Passing nil simulates all input devices disappearing.
func (f *FakeContext) SetDefault(dev *DeviceInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultDev = dev
}

// FailCaptures makes subsequent NewCapture calls return err (nil to heal).
func (f *FakeContext) FailCaptures(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captureErr = err
}

func (f *FakeContext) NewCapture(device *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	c := &FakeCapture{device: device}
	f.captures = append(f.captures, c)
	return c, nil
}

// Captures returns every capture handed out so far, in creation order.
func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeCapture, len(f.captures))
	copy(out, f.captures)
	return out
}

// LiveCaptures counts captures that have been started but not closed.
func (f *FakeContext) LiveCaptures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.captures {
		if c.Live() {
			n++
		}
	}
	return n
}

func (f *FakeContext) Close() {}

type FakeCapture struct {
	device *DeviceInfo

	mu      sync.Mutex
	cb      DataCallback
	started bool
	closed  bool
}

func (c *FakeCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
}

func (c *FakeCapture) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	c.closed = true
}

func (c *FakeCapture) SetCallback(cb DataCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = cb
}

func (c *FakeCapture) ClearCallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = nil
}

func (c *FakeCapture) DeviceName() string {
	return c.device.Label()
}

// Live reports whether the capture is started and not closed.
func (c *FakeCapture) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && !c.closed
}

// Pump delivers one buffer through the registered callback, as the OS
// engine would. Returns false if the capture is not running or has no
// callback registered.
func (c *FakeCapture) Pump(data []byte, frameCount uint32) bool {
	c.mu.Lock()
	cb := c.cb
	running := c.started && !c.closed
	c.mu.Unlock()
	if !running || cb == nil {
		return false
	}
	cb(data, frameCount)
	return true
}

// PumpSilence delivers n buffers of zeroed samples of the given frame count.
func (c *FakeCapture) PumpSilence(n int, frameCount uint32) int {
	buf := make([]byte, frameCount*2) // 16-bit mono
	delivered := 0
	for i := 0; i < n; i++ {
		if c.Pump(buf, frameCount) {
			delivered++
		}
	}
	return delivered
}
