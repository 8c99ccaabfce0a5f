package feed

import "time"

// Countdown is the remaining validity of an active record, decomposed for
// display. Components are never negative; seconds are truncated away.
type Countdown struct {
	Days    uint `json:"days"`
	Hours   uint `json:"hours"`
	Minutes uint `json:"minutes"`
}

// Remaining computes the countdown from now until expiry, clamped at zero.
func Remaining(expiry, now time.Time) Countdown {
	diff := expiry.Sub(now)
	if diff <= 0 {
		return Countdown{}
	}
	total := uint(diff / time.Second)
	return Countdown{
		Days:    total / 86400,
		Hours:   (total / 3600) % 24,
		Minutes: (total / 60) % 60,
	}
}
