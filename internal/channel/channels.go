// Package channel provides the bounded queue between the socket read pump
// and the frame delivery worker.
package channel

import (
	"context"
	"sync"

	"hstrader/internal/wire"
	"hstrader/logger"
)

// ChannelStats tracks enqueue and delivery counters.
type ChannelStats struct {
	Sent      int64
	Received  int64
	Abandoned int64
	Bytes     int64
}

// Frames carries raw frames from one producer to one consumer. Send blocks
// while the buffer is full, so frames are never dropped silently.
type Frames struct {
	C chan wire.Frame

	stats     ChannelStats
	mu        sync.RWMutex
	closeOnce sync.Once
	log       *logger.Log
}

// NewFrames allocates a frame queue with the given buffer size.
func NewFrames(bufferSize int) *Frames {
	if bufferSize < 0 {
		bufferSize = 0
	}
	log := logger.GetLogger()
	f := &Frames{
		C:   make(chan wire.Frame, bufferSize),
		log: log,
	}

	log.WithComponent("frame_channel").WithFields(logger.Fields{
		"buffer_size": bufferSize,
	}).Debug("frame channel initialized")

	return f
}

// Send enqueues a frame, waiting for space. It returns false when ctx ends
// first; the frame is then counted as abandoned.
func (f *Frames) Send(ctx context.Context, frame wire.Frame) bool {
	select {
	case f.C <- frame:
		f.mu.Lock()
		f.stats.Sent++
		f.stats.Bytes += int64(len(frame.Data))
		f.mu.Unlock()
		return true
	case <-ctx.Done():
		f.mu.Lock()
		f.stats.Abandoned++
		f.mu.Unlock()
		return false
	}
}

// Received records that the consumer took one frame off the queue.
func (f *Frames) Received() {
	f.mu.Lock()
	f.stats.Received++
	f.mu.Unlock()
}

// Close closes the queue once; the producer must have stopped sending.
func (f *Frames) Close() {
	f.closeOnce.Do(func() {
		close(f.C)
		f.log.WithComponent("frame_channel").Debug("frame channel closed")
	})
}

// GetStats returns a snapshot of the counters.
func (f *Frames) GetStats() ChannelStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stats
}
