package ntrip

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestAcceptableStatusAcceptsHTTPAndICY(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"HTTP/1.1 200 OK\r\n", true},
		{"ICY 200 OK\r\n", true},
		{"HTTP/1.1 401 Unauthorized\r\n", false},
		{"ICY 404 Not Found\r\n", false},
	}
	for _, c := range cases {
		if got := acceptableStatus(c.line); got != c.want {
			t.Errorf("acceptableStatus(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestBuildRequestContainsRequiredHeaders(t *testing.T) {
	req := buildRequest(Config{Host: "caster.example.com", Mount: "NEAR", User: "u", Password: "p"})
	for _, want := range []string{
		"GET /NEAR HTTP/1.1\r\n",
		"Host: caster.example.com\r\n",
		"Authorization: Basic ",
		"Accept: */*\r\n",
		"Connection: keep-alive\r\n",
	} {
		if !strings.Contains(req, want) {
			t.Errorf("request missing %q:\n%s", want, req)
		}
	}
}

type fakeSink struct {
	chunks [][]byte
	err    error
}

func (f *fakeSink) ForwardRTCM(chunk []byte) error {
	f.chunks = append(f.chunks, append([]byte(nil), chunk...))
	return f.err
}

func TestForwarderChunksAt256Bytes(t *testing.T) {
	sink := &fakeSink{}
	f := NewForwarder(sink)
	f.Enqueue(make([]byte, 600))

	if err := f.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.chunks) != 3 {
		t.Fatalf("expected 3 chunks (256+256+88), got %d", len(sink.chunks))
	}
	if len(sink.chunks[2]) != 88 {
		t.Errorf("final chunk = %d bytes, want 88", len(sink.chunks[2]))
	}
}

func TestForwarderDropsBeyondQueueLimit(t *testing.T) {
	sink := &fakeSink{}
	f := NewForwarder(sink)
	f.queueLimit = 100

	f.Enqueue(make([]byte, 60))
	f.Enqueue(make([]byte, 60)) // exceeds limit, dropped whole
	if f.Dropped() != 60 {
		t.Errorf("Dropped() = %d, want 60", f.Dropped())
	}
	if len(f.queue) != 60 {
		t.Errorf("queue length = %d, want 60 (second enqueue rejected)", len(f.queue))
	}
}

func TestSynthesizeGGAFormat(t *testing.T) {
	ts := time.Date(2026, 7, 29, 12, 35, 19, 0, time.UTC)
	sentence := SynthesizeGGA(GGAParams{
		Time: ts, LatDeg: 48.1173, LonDeg: 11.5167,
		FixQuality: 4, NumSats: 9, HDOP: 0.9, AltitudeM: 520.1,
	})
	if !strings.HasPrefix(sentence, "$GPGGA,123519.00,") {
		t.Errorf("unexpected prefix: %s", sentence)
	}
	if !strings.Contains(sentence, ",N,") || !strings.Contains(sentence, ",E,") {
		t.Errorf("expected N/E hemispheres for positive lat/lon: %s", sentence)
	}
	if !strings.HasSuffix(sentence, "\r\n") {
		t.Errorf("expected trailing CRLF: %q", sentence)
	}
	star := strings.IndexByte(sentence, '*')
	if star < 0 {
		t.Fatalf("missing checksum delimiter: %s", sentence)
	}
	cs := byte(0)
	for _, c := range []byte(sentence[1:star]) {
		cs ^= c
	}
	wantHex := fmt.Sprintf("%02X", cs)
	gotHex := strings.TrimSuffix(sentence[star+1:], "\r\n")
	if gotHex != wantHex {
		t.Errorf("checksum = %s, want %s", gotHex, wantHex)
	}
}
