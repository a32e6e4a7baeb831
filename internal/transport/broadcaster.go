package transport

import (
	"context"
	"fmt"
	"net"
)

// DefaultBroadcastPort is the UDP port the hardware module transport
// broadcasts section/steer frames on (spec.md §6).
const DefaultBroadcastPort = 8888

// Broadcaster sends SectionSteerPGN frames to the subnet broadcast
// address over a buffered channel, non-blocking on the caller,
// mirroring the teacher's PacketForwarder (internal/lidar/network/
// forwarder.go): a background goroutine drains the channel and writes
// to the UDP socket, dropping and counting on a full queue.
type Broadcaster struct {
	conn    *net.UDPConn
	channel chan []byte
	dropped uint64
}

// NewBroadcaster dials the subnet broadcast address (e.g.
// "192.168.1.255") on port, ready for SendFrame calls once Start runs.
func NewBroadcaster(subnetBroadcastAddr string, port int) (*Broadcaster, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", subnetBroadcastAddr, port))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve broadcast address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial broadcast socket: %w", err)
	}
	return &Broadcaster{conn: conn, channel: make(chan []byte, 64)}, nil
}

// Start runs the background send loop until ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case datagram := <-b.channel:
				if _, err := b.conn.Write(datagram); err != nil {
					b.dropped++
				}
			}
		}
	}()
}

// SendFrame implements pipeline.TransportSink: it encodes and
// non-blockingly enqueues the frame, dropping it if the queue is full.
func (b *Broadcaster) SendFrame(steerCentidegrees int32, sectionBitmask uint16) error {
	datagram := Encode(Frame{SectionBitmask: sectionBitmask, SteerCentidegrees: steerCentidegrees})
	select {
	case b.channel <- datagram:
		return nil
	default:
		b.dropped++
		return fmt.Errorf("transport: send queue full, frame dropped")
	}
}

// Dropped returns the cumulative count of frames dropped due to a full
// queue or a write error.
func (b *Broadcaster) Dropped() uint64 { return b.dropped }

// Close releases the underlying socket.
func (b *Broadcaster) Close() error { return b.conn.Close() }
