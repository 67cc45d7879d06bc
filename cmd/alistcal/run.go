package main

import (
	"time"

	"alistcal/internal/config"
	"alistcal/internal/feed"
	appLog "alistcal/internal/log"
	"alistcal/internal/model"
	"alistcal/internal/publish"
)

// runOnce is the whole pipeline: load, render, verify, then persist. Every
// failure happens before the first write.
func runOnce(conf *config.Config, dryRun bool, now time.Time) (feed.Result, error) {
	records, err := model.LoadEvents(conf.Events)
	if err != nil {
		return feed.Result{}, err
	}

	r, err := feed.NewRenderer(feed.Options{
		CalendarName: conf.CalendarName,
		ProductID:    conf.ProductID,
		PublishedTTL: conf.PublishedTTL,
		UIDDomain:    conf.UIDDomain,
	})
	if err != nil {
		return feed.Result{}, err
	}

	res, err := r.Render(records, now)
	if err != nil {
		return feed.Result{}, err
	}
	if err := feed.Verify(res.Feed, res.Events); err != nil {
		return feed.Result{}, err
	}

	if dryRun {
		appLog.Info("dry run; nothing written", "events", len(res.Events))
		return res, nil
	}

	err = publish.Write(
		publish.Target{Dir: conf.OutDir, FeedFile: conf.FeedFile, StampFile: conf.StampFile},
		publish.Artifacts{Feed: res.Feed, Stamp: res.Stamp},
	)
	if err != nil {
		return feed.Result{}, err
	}
	return res, nil
}
