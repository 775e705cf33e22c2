package timer

import "time"

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock is the engine's only source of time so tests can drive ticks by hand.
type Clock interface {
	Now() time.Time
	NewTicker(time.Duration) Ticker
}

var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (t systemTicker) C() <-chan time.Time {
	return t.t.C
}

func (t systemTicker) Stop() {
	t.t.Stop()
}
