package pipeline

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"murmur/encoder"
	"murmur/log"
)

// transcribe is the transcription worker: it consumes exactly one drained
// queue, sequentially. The Transcribing mode set at the drain boundary is
// the exclusivity flag; it is cleared back to Idle under the state lock in
// the deferred block regardless of how the drain cycle ends, so the next
// recording session is never blocked by a failed one.
func (c *Controller) transcribe(q *chunkQueue) {
	defer func() {
		c.state.setMode(Idle)
		log.Info("transcription_cycle_done")
	}()

	chunks, frames := q.take()
	duration := framesToDuration(frames, c.cfg.Capture.SampleRate)

	if duration < c.cfg.MinAudio {
		log.Warnf("skipping transcription: %v of audio (%d chunks): %v",
			duration.Round(time.Millisecond), len(chunks), ErrNoAudioRecorded)
		return
	}

	samples := concatSamples(chunks)

	flac, err := encodeFlac(samples)
	if err != nil {
		log.Errorf("encoding drained audio: %v", err)
		if c.cfg.Notifier != nil {
			c.cfg.Notifier.RecordingError(fmt.Errorf("%w: %v", ErrTranscriptionFailed, err))
		}
		return
	}

	log.Infof("transcribing audio_s=%.1f chunks=%d flac_kb=%.1f",
		duration.Seconds(), len(chunks), float64(len(flac))/1024)

	text, err := c.cfg.Engine.Transcribe(context.Background(), flac, "flac")
	if err != nil {
		log.Errorf("transcription error: %v", err)
		if c.cfg.Notifier != nil {
			c.cfg.Notifier.RecordingError(fmt.Errorf("%w: %v", ErrTranscriptionFailed, err))
		}
		return
	}

	text = Cleanup(text)
	if text == "" {
		log.Info("transcription returned no text")
		return
	}

	log.TranscriptionText(text)
	if c.cfg.Output != nil {
		c.cfg.Output(text)
	}
}

func framesToDuration(frames uint64, sampleRate uint32) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// concatSamples flattens the chunk sequence, in arrival order, into one
// int16 sample buffer.
func concatSamples(chunks []Chunk) []int16 {
	total := 0
	for _, ch := range chunks {
		total += len(ch.Samples) / 2
	}
	samples := make([]int16, 0, total)
	for _, ch := range chunks {
		for i := 0; i+1 < len(ch.Samples); i += 2 {
			samples = append(samples, int16(binary.LittleEndian.Uint16(ch.Samples[i:])))
		}
	}
	return samples
}

func encodeFlac(samples []int16) ([]byte, error) {
	enc, err := encoder.NewFlac()
	if err != nil {
		return nil, err
	}
	for pos := 0; pos < len(samples); pos += encoder.BlockSize {
		end := min(pos+encoder.BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[pos:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}
