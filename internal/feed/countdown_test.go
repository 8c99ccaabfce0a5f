package feed

import (
	"testing"
	"time"
)

func TestRemaining(t *testing.T) {
	expiry := day(7)

	cases := []struct {
		name string
		now  time.Time
		want Countdown
	}{
		{"at expiry", expiry, Countdown{}},
		{"past expiry", expiry.Add(time.Hour), Countdown{}},
		{"one of each, seconds truncated", expiry.Add(-90061 * time.Second), Countdown{Days: 1, Hours: 1, Minutes: 1}},
		{"just under a minute", expiry.Add(-59 * time.Second), Countdown{}},
		{"exactly one minute", expiry.Add(-time.Minute), Countdown{Minutes: 1}},
		{"full week", expiry.Add(-week), Countdown{Days: 7}},
		{"hour wraps at 24", expiry.Add(-(24*time.Hour + 30*time.Minute)), Countdown{Days: 1, Minutes: 30}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Remaining(expiry, tc.now)
			if got != tc.want {
				t.Fatalf("Remaining(%v before expiry) = %+v, want %+v", expiry.Sub(tc.now), got, tc.want)
			}
		})
	}
}
