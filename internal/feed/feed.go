// Package feed turns event records into a published iCalendar document.
package feed

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "alistcal/internal/log"
	"alistcal/internal/model"
	"alistcal/internal/tz"
)

const (
	DefaultCalendarName = "Eventos (confirmados) — Argentina (GMT-3)"
	DefaultProductID    = "-//alist-calendar//weekly//ES"
	DefaultPublishedTTL = "PT24H"
	DefaultUIDDomain    = "alist-calendar"

	localLayout = "20060102T150405"
)

// Options controls the calendar envelope. Zero fields take the defaults.
type Options struct {
	CalendarName string
	ProductID    string
	PublishedTTL string
	UIDDomain    string

	// NewUID mints the local part of each UID. Defaults to uuid.NewString.
	NewUID func() string
}

func (o *Options) normalize() {
	if o.CalendarName == "" {
		o.CalendarName = DefaultCalendarName
	}
	if o.ProductID == "" {
		o.ProductID = DefaultProductID
	}
	if o.PublishedTTL == "" {
		o.PublishedTTL = DefaultPublishedTTL
	}
	if o.UIDDomain == "" {
		o.UIDDomain = DefaultUIDDomain
	}
	if o.NewUID == nil {
		o.NewUID = uuid.NewString
	}
}

// Event is one VEVENT ready to serialize.
type Event struct {
	UID      string
	Summary  string
	Location string

	// AllDay entries use Date; timed entries use Window.
	AllDay bool
	Date   time.Time
	Window tz.Window

	Description []string
}

// Text is the description body as published, one line per entry.
func (e Event) Text() string {
	return normalizeText(strings.Join(e.Description, "\n"))
}

// Result holds the two artifacts of a run.
type Result struct {
	Feed   string // CRLF-terminated iCalendar document
	Stamp  string // keep-alive marker line
	Events []Event
}

// Renderer builds feeds. It is not safe for concurrent use.
type Renderer struct {
	opts Options
	conv *tz.Converter
}

func NewRenderer(opts Options) (*Renderer, error) {
	opts.normalize()
	conv, err := tz.NewConverter()
	if err != nil {
		return nil, err
	}
	return &Renderer{opts: opts, conv: conv}, nil
}

// RenderFeed renders records with default options.
func RenderFeed(records []model.Record, now time.Time) (Result, error) {
	r, err := NewRenderer(Options{})
	if err != nil {
		return Result{}, err
	}
	return r.Render(records, now)
}

// Render expands and renders every record in input order. Records without a
// title or a usable date are skipped; any other data error aborts the run
// and is returned as a *model.RecordError.
func (r *Renderer) Render(records []model.Record, now time.Time) (Result, error) {
	events := make([]Event, 0, len(records))

	for i, rec := range records {
		if strings.TrimSpace(rec.Title) == "" {
			appLog.Debug("skipping event without title", "index", i)
			continue
		}

		instances, err := model.Instances(rec)
		if err != nil {
			return Result{}, &model.RecordError{Index: i, Title: rec.Title, Err: err}
		}
		if len(instances) == 0 {
			appLog.Debug("skipping event without date", "index", i, "title", rec.Title)
			continue
		}

		for _, inst := range instances {
			ev, err := r.buildEvent(inst)
			if err != nil {
				return Result{}, &model.RecordError{Index: i, Title: rec.Title, Err: err}
			}
			events = append(events, ev)
		}
	}

	doc, err := r.serialize(events, now)
	if err != nil {
		return Result{}, err
	}

	appLog.Info("feed rendered", "records", len(records), "events", len(events))
	return Result{
		Feed:   doc,
		Stamp:  Stamp(now),
		Events: events,
	}, nil
}

// Stamp formats the keep-alive marker for now.
func Stamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339) + "\n"
}

func (r *Renderer) buildEvent(rec model.Record) (Event, error) {
	ev := Event{
		UID:      r.opts.NewUID() + "@" + r.opts.UIDDomain,
		Summary:  normalizeText(rec.Title),
		Location: normalizeText(rec.Location),
	}

	var main *tz.Window
	if rec.Timed() {
		start, err := r.conv.Local(rec.Date, rec.StartLocal, rec.TZLocal)
		if err != nil {
			return Event{}, err
		}
		w := r.conv.Window(start, rec.DurationMinutes)
		ev.Window = w
		main = &w
	} else {
		d, err := tz.ParseDate(rec.Date)
		if err != nil {
			return Event{}, err
		}
		ev.AllDay = true
		ev.Date = d
	}

	lines, err := describe(r.conv, rec, main)
	if err != nil {
		return Event{}, err
	}
	ev.Description = lines
	return ev, nil
}

// serialize writes the envelope. Every event shares the DTSTAMP of now.
func (r *Renderer) serialize(events []Event, now time.Time) (string, error) {
	cal := ical.NewCalendarFor(DefaultUIDDomain)
	cal.SetProductId(r.opts.ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(normalizeText(r.opts.CalendarName))
	cal.SetXWRTimezone(tz.Target)
	cal.SetXPublishedTTL(r.opts.PublishedTTL)

	tzid := &ical.KeyValues{Key: string(ical.ParameterTzid), Value: []string{tz.Target}}

	for _, e := range events {
		ve := cal.AddEvent(e.UID)
		ve.SetDtStampTime(now)
		ve.SetSummary(e.Summary)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.AllDay {
			ve.SetAllDayStartAt(e.Date)
			ve.SetAllDayEndAt(e.Date.AddDate(0, 0, 1))
		} else {
			ve.SetProperty(ical.ComponentPropertyDtStart, e.Window.Start.Format(localLayout), tzid)
			ve.SetProperty(ical.ComponentPropertyDtEnd, e.Window.End.Format(localLayout), tzid)
		}
		ve.SetDescription(e.Text())
	}

	var b strings.Builder
	if err := cal.SerializeTo(&b, ical.WithNewLineWindows); err != nil {
		return "", fmt.Errorf("serialize feed: %w", err)
	}
	return b.String(), nil
}
