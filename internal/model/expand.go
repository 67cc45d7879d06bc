package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const (
	// MaxRepeatOccurrences caps a single Repeat series.
	MaxRepeatOccurrences = 104

	// repeatHorizonYears bounds open-ended rules such as FREQ=WEEKLY.
	repeatHorizonYears = 2

	dateLayout = "2006-01-02"
)

var ErrBadRepeat = errors.New("invalid repeat rule")

// Merge resolves one Day against its parent template. The day's date always
// wins; set times, headliners and pop artists win when the day sets them;
// notes are the day's followed by the parent's. The result has no Days and
// no Repeat.
func Merge(parent Record, day Day) Record {
	out := parent
	out.Days = nil
	out.DaysDeclared = false
	out.Repeat = ""
	out.Date = day.Date

	if len(day.SetTimes) > 0 {
		out.SetTimes = day.SetTimes
	}
	if len(day.Headliners) > 0 {
		out.Headliners = day.Headliners
	}
	if len(day.PopArtists) > 0 {
		out.PopArtists = day.PopArtists
	}

	notes := make(StringList, 0, len(day.Notes)+len(parent.Notes))
	notes = append(notes, day.Notes...)
	notes = append(notes, parent.Notes...)
	out.Notes = notes

	return out
}

// Instances expands r into the dated entries it publishes, in order:
//
//   - Days declared: one entry per dated day, merged with the parent. A
//     days list with no dated entry yields nothing, whatever Date says.
//   - Repeat present: one entry per occurrence date of the rule.
//   - Otherwise: r itself when it has a date.
//
// Entries without a usable date are dropped. Only an invalid Repeat rule or
// date is reported as an error.
func Instances(r Record) ([]Record, error) {
	if r.DaysDeclared || len(r.Days) > 0 {
		out := make([]Record, 0, len(r.Days))
		for _, d := range r.Days {
			if d.Date == "" {
				continue
			}
			out = append(out, Merge(r, d))
		}
		return out, nil
	}

	if r.Date == "" {
		return nil, nil
	}

	if r.Repeat != "" {
		return expandRepeat(r)
	}

	single := r
	single.Days = nil
	single.DaysDeclared = false
	return []Record{single}, nil
}

func expandRepeat(r Record) ([]Record, error) {
	start, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", ErrBadRepeat, r.Date)
	}

	ruleText := strings.TrimPrefix(strings.ToUpper(r.Repeat), "RRULE:")
	rule, err := rrule.StrToRRule(ruleText)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadRepeat, r.Repeat, err)
	}
	rule.DTStart(start)

	dates := rule.Between(start, start.AddDate(repeatHorizonYears, 0, 0), true)
	if len(dates) > MaxRepeatOccurrences {
		dates = dates[:MaxRepeatOccurrences]
	}

	out := make([]Record, 0, len(dates))
	for _, d := range dates {
		occ := r
		occ.Days = nil
		occ.DaysDeclared = false
		occ.Repeat = ""
		occ.Date = d.Format(dateLayout)
		out = append(out, occ)
	}
	return out, nil
}
