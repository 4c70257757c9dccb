// Package encoder compresses captured PCM before it is shipped to the
// transcription engine. Capture format is fixed: 16 kHz mono 16-bit.
package encoder

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)
