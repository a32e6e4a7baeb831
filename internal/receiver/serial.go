// Package receiver implements the serial GPS receiver collaborator:
// an I/O task that owns the physical port, scans NMEA lines, and
// forwards each one as an owned byte buffer to the pipeline entry
// point (spec.md §5 ownership rules).
package receiver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.bug.st/serial"
	"tailscale.com/tsweb"
)

// SerialPort is the subset of go.bug.st/serial.Port this package
// depends on, narrowed for testability.
type SerialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// ErrWriteFailed is returned when a short write occurs sending a
// command to the receiver (e.g. an NTRIP-sourced RTCM passthrough).
var ErrWriteFailed = fmt.Errorf("receiver: short write to serial port")

// GPS is a serial-backed NMEA line source. Multiple subscribers may
// receive each line (e.g. the pipeline coordinator and a diagnostics
// logger); one owns the physical device.
type GPS struct {
	port SerialPort

	subscriberMu sync.Mutex
	subscribers  map[string]chan []byte

	closingMu sync.Mutex
	closing   bool

	linesSeen   uint64
	writeErrors uint64
}

// Open opens the named serial device at the given baud rate (typical
// GPS receiver default: 4800 or 115200, receiver-dependent).
func Open(name string, baud int) (*GPS, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("receiver: failed to open %s: %w", name, err)
	}
	return NewGPS(port), nil
}

// NewGPS wraps an already-open port, mirroring the teacher's
// constructor-over-generic-port pattern.
func NewGPS(port SerialPort) *GPS {
	return &GPS{port: port, subscribers: make(map[string]chan []byte)}
}

func randomSubscriberID(seed uint64) string {
	return fmt.Sprintf("sub-%d", seed)
}

// Subscribe returns a channel receiving a copy of every parsed line.
func (g *GPS) Subscribe() (string, chan []byte) {
	g.subscriberMu.Lock()
	defer g.subscriberMu.Unlock()
	id := randomSubscriberID(uint64(len(g.subscribers)) + 1)
	ch := make(chan []byte, 8)
	g.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (g *GPS) Unsubscribe(id string) {
	g.subscriberMu.Lock()
	defer g.subscriberMu.Unlock()
	if ch, ok := g.subscribers[id]; ok {
		close(ch)
		delete(g.subscribers, id)
	}
}

// Sink receives an owned copy of each scanned line; implemented by the
// pipeline coordinator's ProcessGpsBuffer.
type Sink interface {
	ProcessGpsBuffer(buf []byte)
}

// Monitor reads lines from the port and forwards each to sink and any
// subscribers until ctx is cancelled or the port closes.
func (g *GPS) Monitor(ctx context.Context, sink Sink) error {
	scanner := bufio.NewScanner(g.port)

	lineChan := make(chan []byte)
	errChan := make(chan error, 1)

	go func() {
		defer close(lineChan)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...) // owned copy
			select {
			case lineChan <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case errChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			return err
		case line, ok := <-lineChan:
			if !ok {
				return scanner.Err()
			}
			g.closingMu.Lock()
			closing := g.closing
			g.closingMu.Unlock()
			if closing {
				return nil
			}

			g.linesSeen++
			if sink != nil {
				sink.ProcessGpsBuffer(line)
			}

			g.subscriberMu.Lock()
			for _, ch := range g.subscribers {
				select {
				case ch <- line:
				default:
				}
			}
			g.subscriberMu.Unlock()
		}
	}
}

// Close marks the receiver closing and releases the underlying port
// (spec.md §5 cancellation: releases external file handles/sockets).
func (g *GPS) Close() error {
	g.closingMu.Lock()
	g.closing = true
	g.closingMu.Unlock()

	g.subscriberMu.Lock()
	for id, ch := range g.subscribers {
		close(ch)
		delete(g.subscribers, id)
	}
	g.subscriberMu.Unlock()

	return g.port.Close()
}

// WriteCommand forwards a command byte string to the receiver, e.g.
// RTCM correction bytes received from the NTRIP collaborator.
func (g *GPS) WriteCommand(b []byte) error {
	if !bytes.HasSuffix(b, []byte("\n")) {
		b = append(b, '\n')
	}
	n, err := g.port.Write(b)
	if err != nil {
		g.writeErrors++
		return err
	}
	if n != len(b) {
		g.writeErrors++
		return ErrWriteFailed
	}
	return nil
}

// AttachAdminRoutes mounts a minimal debug endpoint reporting line and
// write-error counters, mirroring the teacher's
// SerialMux.AttachAdminRoutes pattern.
func (g *GPS) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("receiver-stats", "GPS receiver line/write counters", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "lines_seen=%d write_errors=%d subscribers=%d\n", g.linesSeen, g.writeErrors, len(g.subscribers))
	})
}
