package feed

import (
	"errors"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"
)

var ErrInvalidFeed = errors.New("invalid feed")

var requiredProps = []ical.ComponentProperty{
	ical.ComponentPropertyUniqueId,
	ical.ComponentPropertyDtstamp,
	ical.ComponentPropertySummary,
	ical.ComponentPropertyDtStart,
	ical.ComponentPropertyDtEnd,
	ical.ComponentPropertyDescription,
}

// Verify re-parses a rendered document and checks line endings, the properties
// every VEVENT must carry, and that each VEVENT parses back to the matching
// entry of events: same UID, summary, location and description text.
func Verify(doc string, events []Event) error {
	if !strings.HasSuffix(doc, "\r\n") {
		return fmt.Errorf("%w: missing final CRLF", ErrInvalidFeed)
	}
	if n := strings.Count(doc, "\n"); n != strings.Count(doc, "\r\n") {
		return fmt.Errorf("%w: bare LF line ending", ErrInvalidFeed)
	}

	cal, err := ical.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}

	parsed := cal.Events()
	if len(parsed) != len(events) {
		return fmt.Errorf("%w: %d events, want %d", ErrInvalidFeed, len(parsed), len(events))
	}

	seen := make(map[string]struct{}, len(parsed))
	for i, ve := range parsed {
		for _, p := range requiredProps {
			if prop := ve.GetProperty(p); prop == nil || prop.Value == "" {
				return fmt.Errorf("%w: event %d missing %s", ErrInvalidFeed, i, p)
			}
		}
		uid := ve.GetProperty(ical.ComponentPropertyUniqueId).Value
		if _, dup := seen[uid]; dup {
			return fmt.Errorf("%w: duplicate UID %s", ErrInvalidFeed, uid)
		}
		seen[uid] = struct{}{}

		if err := matchEvent(ve, events[i]); err != nil {
			return fmt.Errorf("%w: event %d: %v", ErrInvalidFeed, i, err)
		}
	}
	return nil
}

func matchEvent(ve *ical.VEvent, want Event) error {
	checks := []struct {
		prop ical.ComponentProperty
		want string
	}{
		{ical.ComponentPropertyUniqueId, want.UID},
		{ical.ComponentPropertySummary, want.Summary},
		{ical.ComponentPropertyLocation, want.Location},
		{ical.ComponentPropertyDescription, want.Text()},
	}
	for _, c := range checks {
		got := ""
		if prop := ve.GetProperty(c.prop); prop != nil {
			got = prop.Value
		}
		if got != c.want {
			return fmt.Errorf("%s is %q, want %q", c.prop, got, c.want)
		}
	}
	return nil
}
