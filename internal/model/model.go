package model

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is one entry of the events document. A record either describes a
// single dated entry, a template for several Days, or a recurring series
// (Repeat). Optional fields decode to their zero value.
type Record struct {
	Title    string `yaml:"title"`
	Location string `yaml:"location"`

	// Date is YYYY-MM-DD. It may be blank when Days carry their own dates.
	Date string `yaml:"date"`

	// StartLocal (HH:MM), TZLocal (IANA name) and DurationMinutes must all be
	// set for the entry to be timed; otherwise it is published as all-day.
	StartLocal      string `yaml:"start_local"`
	TZLocal         string `yaml:"tz_local"`
	DurationMinutes int    `yaml:"duration_minutes"`

	// Repeat is an RRULE (e.g. "FREQ=WEEKLY;COUNT=6") anchored at Date.
	Repeat string `yaml:"repeat"`

	Broadcast       Broadcast `yaml:"broadcast"`
	ConfirmedPeople People    `yaml:"confirmed_people"`

	// Award shows.
	TopNominated        StringList `yaml:"top_nominated"`
	ConfirmedPerformers StringList `yaml:"confirmed_performers"`
	SpecialAwards       StringList `yaml:"special_awards"`

	// Festivals.
	Headliners StringList  `yaml:"headliners"`
	PopArtists StringList  `yaml:"pop_artists"`
	SetTimes   SetTimeList `yaml:"set_times"`

	Notes StringList `yaml:"notes"`

	Days DayList `yaml:"days"`

	// DaysDeclared is set when the input carried a non-empty days list, even
	// if none of its entries decoded. Such a record never falls back to Date.
	DaysDeclared bool `yaml:"-"`
}

// Day overrides a subset of its parent Record for one calendar date.
type Day struct {
	Date       string      `yaml:"date"`
	SetTimes   SetTimeList `yaml:"set_times"`
	Headliners StringList  `yaml:"headliners"`
	PopArtists StringList  `yaml:"pop_artists"`
	Notes      StringList  `yaml:"notes"`
}

// SetTime is one performance slot, in the record's source zone.
type SetTime struct {
	Artist     string `yaml:"artist"`
	StartLocal string `yaml:"start_local"`
	EndLocal   string `yaml:"end_local"`
	Stage      string `yaml:"stage"`
}

// Complete reports whether the slot can be rendered.
func (s SetTime) Complete() bool {
	return s.Artist != "" && s.StartLocal != "" && s.EndLocal != ""
}

type Broadcast struct {
	TV        StringList `yaml:"tv"`
	Streaming StringList `yaml:"streaming"`
	RedCarpet RedCarpet  `yaml:"red_carpet"`
}

type RedCarpet struct {
	Confirmed       bool   `yaml:"confirmed"`
	Where           string `yaml:"where"`
	StartLocal      string `yaml:"start_local"`
	DurationMinutes int    `yaml:"duration_minutes"`
}

// People lists confirmed attendees by category.
type People struct {
	AList      StringList `yaml:"a_list"`
	BList      StringList `yaml:"b_list"`
	Argentines StringList `yaml:"argentines"`
}

// Timed reports whether the record carries a complete main schedule.
func (r Record) Timed() bool {
	return r.StartLocal != "" && r.TZLocal != "" && r.DurationMinutes > 0
}

// normalize trims every scalar so later checks can compare against "".
func (r *Record) normalize() {
	trim(&r.Title, &r.Location, &r.Date, &r.StartLocal, &r.TZLocal, &r.Repeat)
	rc := &r.Broadcast.RedCarpet
	trim(&rc.Where, &rc.StartLocal)
	r.SetTimes.normalize()
	for i := range r.Days {
		trim(&r.Days[i].Date)
		r.Days[i].SetTimes.normalize()
	}
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// StringList accepts a YAML sequence, a single scalar or null. Entries are
// trimmed and blank entries dropped.
type StringList []string

func (l *StringList) UnmarshalYAML(n *yaml.Node) error {
	*l = nil
	switch n.Kind {
	case yaml.ScalarNode:
		l.add(n)
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind == yaml.AliasNode {
				item = item.Alias
			}
			if item.Kind == yaml.ScalarNode {
				l.add(item)
			}
		}
	case yaml.AliasNode:
		return l.UnmarshalYAML(n.Alias)
	}
	return nil
}

func (l *StringList) add(n *yaml.Node) {
	if n.ShortTag() == "!!null" {
		return
	}
	if v := strings.TrimSpace(n.Value); v != "" {
		*l = append(*l, v)
	}
}

// DayList decodes the mapping entries of a days sequence and skips the rest.
type DayList []Day

func (l *DayList) UnmarshalYAML(n *yaml.Node) error {
	days, err := decodeMappings[Day](n)
	*l = days
	return err
}

// SetTimeList decodes the mapping entries of a set_times sequence and skips
// the rest.
type SetTimeList []SetTime

func (l *SetTimeList) UnmarshalYAML(n *yaml.Node) error {
	slots, err := decodeMappings[SetTime](n)
	*l = slots
	return err
}

func (l SetTimeList) normalize() {
	for i := range l {
		trim(&l[i].Artist, &l[i].StartLocal, &l[i].EndLocal, &l[i].Stage)
	}
}

func decodeMappings[T any](n *yaml.Node) ([]T, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.SequenceNode {
		return nil, nil
	}
	out := make([]T, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind == yaml.AliasNode {
			item = item.Alias
		}
		if item.Kind != yaml.MappingNode {
			continue
		}
		var v T
		if err := item.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
