package pipeline

import (
	"sync"
	"time"
)

// Chunk is one captured sample buffer. Created by the audio callback,
// owned by the queue it was appended to, consumed exactly once by the
// transcription worker.
type Chunk struct {
	Samples []byte // 16-bit little-endian mono PCM
	Frames  uint32
	At      time.Duration // monotonic capture offset
}

// chunkQueue is the single-producer single-consumer chunk sequence. The
// callback appends; the worker takes the whole sequence once. Draining
// swaps the controller's live-queue pointer for a fresh queue, so the
// producer never blocks on a drain and a chunk appended after the swap
// lands in the next session's queue. The mutex here only orders an append
// that raced the swap itself against the worker's take; it is never
// contended beyond that.
type chunkQueue struct {
	mu     sync.Mutex
	chunks []Chunk
	frames uint64
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{}
}

func (q *chunkQueue) append(c Chunk) {
	q.mu.Lock()
	q.chunks = append(q.chunks, c)
	q.frames += uint64(c.Frames)
	q.mu.Unlock()
}

// take hands the full chunk sequence to the caller. Called once, by the
// worker, after the queue has been swapped out of the live slot.
func (q *chunkQueue) take() ([]Chunk, uint64) {
	q.mu.Lock()
	chunks := q.chunks
	frames := q.frames
	q.chunks = nil
	q.frames = 0
	q.mu.Unlock()
	return chunks, frames
}

func (q *chunkQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}
