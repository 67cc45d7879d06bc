// Package tz converts source-local wall-clock times into the single display
// zone of the feed. All zone rules come from the IANA database loaded by
// time.LoadLocation.
package tz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// Target is the display zone of every published time.
	Target = "America/Argentina/Buenos_Aires"
	// Label is appended to every rendered window.
	Label = "Argentina, GMT-3"

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var (
	ErrUnknownZone = errors.New("unknown timezone")
	ErrBadDate     = errors.New("malformed date")
	ErrBadClock    = errors.New("malformed time of day")
)

// Window is a start/end pair already expressed in the target zone.
type Window struct {
	Start time.Time
	End   time.Time
}

// Converter resolves source zones and projects instants into the target
// zone. It is not safe for concurrent use.
type Converter struct {
	target *time.Location
	zones  map[string]*time.Location
}

// NewConverter loads the target zone. It fails only when the tz database
// is unavailable.
func NewConverter() (*Converter, error) {
	target, err := time.LoadLocation(Target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownZone, Target, err)
	}
	return &Converter{
		target: target,
		zones:  map[string]*time.Location{Target: target},
	}, nil
}

// Location returns the target zone.
func (c *Converter) Location() *time.Location {
	return c.target
}

// Zone resolves an IANA name, caching the result.
func (c *Converter) Zone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if loc, ok := c.zones[name]; ok {
		return loc, nil
	}
	// LoadLocation("") is UTC and "Local" is the host zone; neither is a
	// valid authored value.
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	c.zones[name] = loc
	return loc, nil
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight UTC.
func ParseDate(date string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, date)
	}
	return d, nil
}

// Local interprets date + clock as wall-clock time in zone. DST gaps and
// overlaps are resolved the way time.Date does.
func (c *Converter) Local(date, clock, zone string) (time.Time, error) {
	loc, err := c.Zone(zone)
	if err != nil {
		return time.Time{}, err
	}
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hm, err := time.Parse(clockLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadClock, clock)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
}

// Window adds minutes to start in absolute time and projects both ends
// into the target zone.
func (c *Converter) Window(start time.Time, minutes int) Window {
	return Window{
		Start: start.In(c.target),
		End:   start.Add(time.Duration(minutes) * time.Minute).In(c.target),
	}
}

// Span projects an explicit start/end pair into the target zone.
func (c *Converter) Span(start, end time.Time) Window {
	return Window{Start: start.In(c.target), End: end.In(c.target)}
}

// FormatWindow renders "DD/MM HH:MM–HH:MM (label)", repeating the date on
// the end side when the window crosses midnight in the target zone.
func FormatWindow(w Window) string {
	start := w.Start.Format("02/01 15:04")
	if sameDate(w.Start, w.End) {
		return fmt.Sprintf("%s–%s (%s)", start, w.End.Format(clockLayout), Label)
	}
	return fmt.Sprintf("%s–%s (%s)", start, w.End.Format("02/01 15:04"), Label)
}

// FormatClock renders "HH:MM–HH:MM" without dates.
func FormatClock(w Window) string {
	return w.Start.Format(clockLayout) + "–" + w.End.Format(clockLayout)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
