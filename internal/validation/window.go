package validation

import (
	"fmt"
	"time"
)

const clockLayout = "15:04:05"

// Window is the daily operating window of the kiosks. Both ends are inclusive.
type Window struct {
	Open  time.Duration // offset from midnight
	Close time.Duration
}

// DefaultWindow is 08:45:00 to 18:15:00.
var DefaultWindow = Window{
	Open:  8*time.Hour + 45*time.Minute,
	Close: 18*time.Hour + 15*time.Minute,
}

// ParseWindow builds a Window from two HH:MM:SS strings.
func ParseWindow(openAt, closeAt string) (Window, error) {
	o, err := parseClock(openAt)
	if err != nil {
		return Window{}, fmt.Errorf("parse window open: %w", err)
	}
	c, err := parseClock(closeAt)
	if err != nil {
		return Window{}, fmt.Errorf("parse window close: %w", err)
	}
	if c < o {
		return Window{}, fmt.Errorf("window close %s is before open %s", closeAt, openAt)
	}
	return Window{Open: o, Close: c}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, err
	}
	return sinceMidnight(t), nil
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

// Contains reports whether the wall-clock part of t falls inside the window.
// Date, zone and sub-second parts are ignored.
func (w Window) Contains(t time.Time) bool {
	d := sinceMidnight(t)
	return w.Open <= d && d <= w.Close
}

func (w Window) String() string {
	midnight := time.Time{}
	return midnight.Add(w.Open).Format(clockLayout) + "-" + midnight.Add(w.Close).Format(clockLayout)
}
