package ntrip

import "time"

// defaultFlushInterval is the forwarding queue's flush cadence
// (spec.md §6: "50ms flush timer").
const defaultFlushInterval = 50 * time.Millisecond

// defaultGGAInterval is the default cadence for synthesised GGA
// uploads to the caster (spec.md §6: "default 10s").
const defaultGGAInterval = 10 * time.Second

// timeTicker adapts time.Ticker to the FlushTicker interface.
type timeTicker struct {
	t    *time.Ticker
	c    chan struct{}
	stop chan struct{}
}

// NewFlushTicker returns a FlushTicker firing every interval
// (defaultFlushInterval if interval <= 0).
func NewFlushTicker(interval time.Duration) FlushTicker {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	tt := &timeTicker{t: time.NewTicker(interval), c: make(chan struct{}, 1), stop: make(chan struct{})}
	go tt.pump()
	return tt
}

func (tt *timeTicker) pump() {
	for {
		select {
		case <-tt.t.C:
			select {
			case tt.c <- struct{}{}:
			default:
			}
		case <-tt.stop:
			return
		}
	}
}

func (tt *timeTicker) C() <-chan struct{} { return tt.c }

func (tt *timeTicker) Stop() {
	tt.t.Stop()
	close(tt.stop)
}
