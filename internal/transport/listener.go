package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DefaultReceivePort is the UDP port the hardware module transport
// listens on for inbound status frames (spec.md §6).
const DefaultReceivePort = 9999

// StatusSink receives each decoded inbound frame (e.g. hardware-module
// status echoes used for diagnostics).
type StatusSink interface {
	ReceiveStatusFrame(f Frame)
}

// Listener receives UDP datagrams and dispatches decoded frames to a
// sink, mirroring the teacher's UDPListener
// (internal/lidar/network/listener.go): a read loop with a short
// deadline so context cancellation is checked promptly, decode
// failures counted and skipped rather than terminating the loop.
type Listener struct {
	conn        *net.UDPConn
	sink        StatusSink
	decodeFails uint64
}

// Listen opens a UDP socket on port and returns a ready-to-run
// Listener.
func Listen(port int, sink StatusSink) (*Listener, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen: %w", err)
	}
	return &Listener{conn: conn, sink: sink}, nil
}

// Run processes datagrams until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	defer l.conn.Close()
	buf := make([]byte, 1500)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		l.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		f, err := Decode(buf[:n])
		if err != nil {
			l.decodeFails++
			continue
		}
		if l.sink != nil {
			l.sink.ReceiveStatusFrame(f)
		}
	}
}

// DecodeFailures returns the cumulative count of datagrams that failed
// to decode as a known PGN.
func (l *Listener) DecodeFailures() uint64 { return l.decodeFails }
