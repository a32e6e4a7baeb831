//go:build !pcap
// +build !pcap

package transport

import (
	"context"
	"fmt"
)

// ReplayPCAPFile is a stub used when PCAP support is disabled. Build
// with -tags=pcap to enable PCAP file replay.
func ReplayPCAPFile(ctx context.Context, pcapFile string, port int, sink StatusSink) (int, error) {
	return 0, fmt.Errorf("transport: PCAP support not enabled: rebuild with -tags=pcap")
}
