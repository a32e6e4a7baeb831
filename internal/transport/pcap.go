//go:build pcap
// +build pcap

package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// ReplayPCAPFile decodes every UDP/port datagram in pcapFile as a
// SectionSteerPGN frame and delivers it to sink, for integration
// testing against a captured field session. Mirrors the teacher's
// ReadPCAPFile (internal/lidar/network/pcap.go): BPF-filtered offline
// read, context-cancellable packet loop.
func ReplayPCAPFile(ctx context.Context, pcapFile string, port int, sink StatusSink) (int, error) {
	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return 0, fmt.Errorf("transport: open pcap file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	filter := fmt.Sprintf("udp port %d", port)
	if err := handle.SetBPFFilter(filter); err != nil {
		return 0, fmt.Errorf("transport: set BPF filter %q: %w", filter, err)
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	count := 0
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				_ = time.Since(start)
				return count, nil
			}

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok || len(udp.Payload) == 0 {
				continue
			}

			f, err := Decode(udp.Payload)
			if err != nil {
				continue
			}
			count++
			if sink != nil {
				sink.ReceiveStatusFrame(f)
			}
		}
	}
}
