package clock

import "time"

// Clock reads the wall clock.
type Clock struct{}

// NowUnix returns current unix seconds.
func (Clock) NowUnix() int64 {
	return time.Now().Unix()
}

// Fixed is a clock frozen at a unix second, for tests and replays.
type Fixed int64

// NowUnix returns the frozen value.
func (f Fixed) NowUnix() int64 {
	return int64(f)
}
