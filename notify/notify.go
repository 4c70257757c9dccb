// Package notify shows desktop notifications for recording lifecycle
// events and plays the matching audible cues.
package notify

import (
	"murmur/beep"
	"murmur/log"
)

// Desktop reports recording events to the user via OS notifications
// and beeps. All delivery is best effort.
type Desktop struct{}

// sendFn points at the platform backend; swapped out in tests.
var sendFn = send

func NewDesktop() *Desktop {
	beep.Init()
	return &Desktop{}
}

func (d *Desktop) RecordingStarted(device string) {
	beep.PlayStart()
	if err := sendFn("Recording started", "Using "+device); err != nil {
		log.Warnf("notification delivery failed: %v", err)
	}
}

func (d *Desktop) RecordingStopped() {
	beep.PlayEnd()
}

func (d *Desktop) RecordingError(err error) {
	beep.PlayError()
	if sendErr := sendFn("Recording error", err.Error()); sendErr != nil {
		log.Warnf("notification delivery failed: %v", sendErr)
	}
}
