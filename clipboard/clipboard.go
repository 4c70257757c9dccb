// Package clipboard copies transcribed text and optionally pastes it
// into the focused application via a synthetic keystroke.
package clipboard

import (
	"time"

	cb "github.com/atotto/clipboard"
)

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// PastePreserving copies text, sends the paste keystroke, then restores
// whatever was on the clipboard before. Restore is best effort.
func PastePreserving(text string) error {
	prev, prevErr := Read()

	if err := Copy(text); err != nil {
		return err
	}
	// Let the clipboard owner settle before the keystroke lands.
	time.Sleep(50 * time.Millisecond)
	if err := Paste(); err != nil {
		return err
	}
	if prevErr == nil {
		time.Sleep(300 * time.Millisecond)
		Copy(prev)
	}
	return nil
}
