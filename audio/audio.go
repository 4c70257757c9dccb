package audio

// DataCallback is invoked by the OS audio engine on its own thread for
// every delivered capture buffer. Implementations must not block: the
// engine's real-time thread is not ours to stall.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

func (d *DeviceInfo) Label() string {
	if d == nil {
		return "system default"
	}
	return d.Name
}

// Same reports whether two device records refer to the same device.
// Either side may be nil, meaning "system default".
func (d *DeviceInfo) Same(other *DeviceInfo) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.ID == other.ID
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	DefaultDevice() (*DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
