package clock

import "time"

// Clock is the server's source of time, in whole seconds since the Unix
// epoch. The protocol carries expiration times at second granularity, so
// nothing finer is needed. Production code uses Real; tests use Fake and
// advance it by hand.
type Clock interface {
	Now() uint64
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() uint64 {
	return uint64(time.Now().Unix())
}

// Fake is a hand-driven clock for tests.
type Fake struct {
	Seconds uint64
}

func NewFake(seconds uint64) *Fake {
	return &Fake{Seconds: seconds}
}

func (f *Fake) Now() uint64 {
	return f.Seconds
}

// Advance moves the fake clock forward by d seconds.
func (f *Fake) Advance(d uint64) {
	f.Seconds += d
}

// Set jumps the fake clock to an absolute second.
func (f *Fake) Set(seconds uint64) {
	f.Seconds = seconds
}
