package ntrip

import (
	"context"
	"fmt"
)

// chunkSize is the forwarding granularity for raw RTCM3 bytes
// (spec.md §6: "forwarded in 256-byte chunks").
const chunkSize = 256

// maxQueueBytes bounds the forwarding queue; correction bytes beyond
// this are dropped rather than risk unbounded memory growth on a slow
// downstream consumer.
const maxQueueBytes = 10 * 1024

// Sink receives forwarded RTCM3 byte chunks, implemented by the
// hardware transport collaborator.
type Sink interface {
	ForwardRTCM(chunk []byte) error
}

// Forwarder owns the bounded byte queue between the caster read loop
// and the transport sink, flushing on a fixed timer.
type Forwarder struct {
	queue      []byte
	queueLimit int
	dropped    uint64
	sink       Sink
}

// NewForwarder builds a Forwarder over sink with the default 10 kB
// queue limit.
func NewForwarder(sink Sink) *Forwarder {
	return &Forwarder{sink: sink, queueLimit: maxQueueBytes}
}

// Enqueue appends b to the pending queue, dropping and counting it if
// the queue is already at its limit.
func (f *Forwarder) Enqueue(b []byte) {
	if len(f.queue)+len(b) > f.queueLimit {
		f.dropped += uint64(len(b))
		return
	}
	f.queue = append(f.queue, b...)
}

// Dropped returns the cumulative count of dropped bytes.
func (f *Forwarder) Dropped() uint64 { return f.dropped }

// Flush sends whole 256-byte chunks (and any final partial chunk) to
// the sink, clearing the queue. Returns the first forwarding error, if
// any; remaining chunks are still attempted.
func (f *Forwarder) Flush() error {
	var firstErr error
	for len(f.queue) > 0 {
		n := chunkSize
		if n > len(f.queue) {
			n = len(f.queue)
		}
		chunk := f.queue[:n]
		if err := f.sink.ForwardRTCM(chunk); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("ntrip: forward chunk: %w", err)
		}
		f.queue = f.queue[n:]
	}
	return firstErr
}

// Stream reads raw bytes from the caster connection until ctx is
// cancelled or the connection errs, enqueueing into f and flushing
// every flushInterval.
func (c *Client) Stream(ctx context.Context, f *Forwarder, flushInterval FlushTicker) error {
	buf := make([]byte, chunkSize)
	readDone := make(chan readResult, 1)

	go func() {
		for {
			n, err := c.br.Read(buf)
			select {
			case readDone <- readResult{n: n, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-flushInterval.C():
			if err := f.Flush(); err != nil {
				return err
			}
		case res := <-readDone:
			if res.n > 0 {
				f.Enqueue(append([]byte(nil), buf[:res.n]...))
			}
			if res.err != nil {
				f.Flush()
				return fmt.Errorf("ntrip: stream read: %w", res.err)
			}
		}
	}
}

type readResult struct {
	n   int
	err error
}

// FlushTicker abstracts the periodic flush timer so tests can drive it
// deterministically instead of waiting on a real 50ms clock.
type FlushTicker interface {
	C() <-chan struct{}
	Stop()
}
