package pipeline

import "errors"

var (
	// ErrStartupVerification means a freshly created capture stream did not
	// deliver enough callbacks within the verification window.
	ErrStartupVerification = errors.New("capture stream produced no callbacks during startup verification")

	// ErrStreamCreation means the OS refused to open the input device.
	ErrStreamCreation = errors.New("capture stream creation failed")

	// ErrDeviceUnavailable means no usable input device exists.
	ErrDeviceUnavailable = errors.New("no usable input device")

	// ErrNoAudioRecorded means a drained session was empty or too short to
	// be worth sending to the transcription engine.
	ErrNoAudioRecorded = errors.New("no audio recorded")

	// ErrTranscriptionFailed wraps an error raised by the engine.
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrLockTimeout means a recovery path could not acquire the stream
	// lock within its bound. The operation is abandoned and the session
	// forced back to idle rather than left hanging.
	ErrLockTimeout = errors.New("timed out waiting for stream lock")

	// ErrBusy means a toggle arrived while a drained session was still
	// being transcribed. Only clean idle/recording edges are accepted.
	ErrBusy = errors.New("toggle rejected: transcription in progress")
)
