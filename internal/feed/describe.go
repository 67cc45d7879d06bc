package feed

import (
	"strings"

	"alistcal/internal/model"
	"alistcal/internal/tz"
)

// Description labels, as published to the audience.
const (
	labelTime          = "Hora Argentina"
	timeTBA            = "Hora Argentina: por anunciar (sin horario oficial publicado)."
	labelTV            = "TV"
	labelStreaming     = "Streaming"
	redCarpetConfirmed = "Red carpet confirmado: "
	redCarpetNoDetail  = "Sí (detalle por anunciar)"
	redCarpetMissing   = "Red carpet: no confirmado oficialmente."
	labelNominated     = "Más nominadas/os"
	labelPerformers    = "Performances confirmadas"
	labelSpecialAwards = "Premios especiales confirmados"
	labelHeadliners    = "Headliners"
	labelPopArtists    = "Artistas pop destacados"
	setTimesHeader     = "Horarios de shows (hora Argentina, GMT-3):"
	setTimesNoZone     = "Horarios de shows: no se pueden convertir (falta tz_local)."
	labelAList         = "Celebrities A-list confirmadas"
	labelBList         = "Celebrities B-list confirmadas"
	labelArgentines    = "Argentinos confirmados"
	noConfirmations    = "(sin confirmaciones oficiales publicadas)"
)

type description struct {
	lines []string
}

func (d *description) add(line string) {
	d.lines = append(d.lines, line)
}

// list adds "label: a, b" only when items is non-empty.
func (d *description) list(label string, items []string) {
	if len(items) > 0 {
		d.add(label + ": " + strings.Join(items, ", "))
	}
}

// people always adds a line, falling back to the placeholder.
func (d *description) people(label string, items []string) {
	if len(items) == 0 {
		d.add(label + ": " + noConfirmations)
		return
	}
	d.list(label, items)
}

// describe assembles the description body of one dated instance. main is
// the converted main window, nil for all-day entries.
func describe(conv *tz.Converter, rec model.Record, main *tz.Window) ([]string, error) {
	var d description

	if main != nil {
		d.add(labelTime + ": " + tz.FormatWindow(*main))
	} else {
		d.add(timeTBA)
	}

	d.list(labelTV, rec.Broadcast.TV)
	d.list(labelStreaming, rec.Broadcast.Streaming)

	redCarpet, err := redCarpetLine(conv, rec)
	if err != nil {
		return nil, err
	}
	d.add(redCarpet)

	d.list(labelNominated, rec.TopNominated)
	d.list(labelPerformers, rec.ConfirmedPerformers)
	d.list(labelSpecialAwards, rec.SpecialAwards)
	d.list(labelHeadliners, rec.Headliners)
	d.list(labelPopArtists, rec.PopArtists)

	if err := setTimes(&d, conv, rec); err != nil {
		return nil, err
	}

	d.people(labelAList, rec.ConfirmedPeople.AList)
	d.people(labelBList, rec.ConfirmedPeople.BList)
	d.people(labelArgentines, rec.ConfirmedPeople.Argentines)

	for _, n := range rec.Notes {
		if n != "" {
			d.add(n)
		}
	}

	return d.lines, nil
}

func redCarpetLine(conv *tz.Converter, rec model.Record) (string, error) {
	rc := rec.Broadcast.RedCarpet
	if !rc.Confirmed {
		return redCarpetMissing, nil
	}

	if rc.StartLocal == "" || rec.TZLocal == "" || rc.DurationMinutes <= 0 {
		if rc.Where != "" {
			return redCarpetConfirmed + rc.Where, nil
		}
		return redCarpetConfirmed + redCarpetNoDetail, nil
	}

	start, err := conv.Local(rec.Date, rc.StartLocal, rec.TZLocal)
	if err != nil {
		return "", err
	}
	line := redCarpetConfirmed
	if rc.Where != "" {
		line += rc.Where + " — "
	}
	return line + labelTime + ": " + tz.FormatWindow(conv.Window(start, rc.DurationMinutes)), nil
}

// setTimes renders the per-performance block. Slots missing an artist or
// either bound are skipped; an end before its start falls on the next day.
func setTimes(d *description, conv *tz.Converter, rec model.Record) error {
	if len(rec.SetTimes) == 0 {
		return nil
	}
	if rec.TZLocal == "" {
		d.add(setTimesNoZone)
		return nil
	}

	d.add(setTimesHeader)
	for _, st := range rec.SetTimes {
		if !st.Complete() {
			continue
		}
		start, err := conv.Local(rec.Date, st.StartLocal, rec.TZLocal)
		if err != nil {
			return err
		}
		end, err := conv.Local(rec.Date, st.EndLocal, rec.TZLocal)
		if err != nil {
			return err
		}
		if end.Before(start) {
			end = end.AddDate(0, 0, 1)
		}

		line := "- " + tz.FormatClock(conv.Span(start, end)) + " " + st.Artist
		if st.Stage != "" {
			line += " (" + st.Stage + ")"
		}
		d.add(line)
	}
	return nil
}
