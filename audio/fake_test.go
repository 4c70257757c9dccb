package audio

import "testing"

func TestFakeCapturePumpLifecycle(t *testing.T) {
	ctx := NewFakeContext(DeviceInfo{ID: "dev-1", Name: "Mic"})
	dev, err := ctx.DefaultDevice()
	if err != nil {
		t.Fatal(err)
	}
	handle, err := ctx.NewCapture(dev, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	fc := handle.(*FakeCapture)

	var delivered int
	fc.SetCallback(func(data []byte, frameCount uint32) { delivered++ })

	buf := make([]byte, 320)
	if fc.Pump(buf, 160) {
		t.Error("Pump delivered before Start")
	}

	if err := fc.Start(); err != nil {
		t.Fatal(err)
	}
	if !fc.Pump(buf, 160) {
		t.Error("Pump failed on a started capture")
	}
	if delivered != 1 {
		t.Errorf("callbacks delivered = %d, want 1", delivered)
	}

	fc.Stop()
	fc.ClearCallback()
	fc.Close()
	if fc.Pump(buf, 160) {
		t.Error("Pump delivered after Close")
	}
	if fc.Live() {
		t.Error("capture reports live after Close")
	}
}

func TestFakeContextDefaultDeviceIsCopy(t *testing.T) {
	devices := []DeviceInfo{{ID: "dev-1", Name: "Mic"}}
	ctx := NewFakeContext(devices...)

	a, err := ctx.DefaultDevice()
	if err != nil {
		t.Fatal(err)
	}
	b, err := ctx.DefaultDevice()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("DefaultDevice returned a shared pointer")
	}
	if !a.Same(b) {
		t.Error("copies of the same device compare unequal")
	}
}
