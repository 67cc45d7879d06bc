package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"alistcal/internal/config"
	appLog "alistcal/internal/log"
)

// flagConfig holds CLI flag values; non-empty values override the config file.
type flagConfig struct {
	configPath string
	events     string
	outDir     string
	schedule   string
	logLevel   string
	dryRun     bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	applyFlags(conf, flags)

	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Error("invalid log level", err, "log_level", conf.LogLevel)
		os.Exit(1)
	}
	appLog.SetLevel(level)

	appLog.Debug("effective config",
		"events", conf.Events,
		"out_dir", conf.OutDir,
		"feed_file", conf.FeedFile,
		"stamp_file", conf.StampFile,
		"schedule", conf.Schedule,
		"dry_run", flags.dryRun,
	)

	if conf.Schedule == "" {
		if _, err := runOnce(conf, flags.dryRun, time.Now()); err != nil {
			appLog.Error("feed generation failed", err, "events", conf.Events)
			os.Exit(1)
		}
		return
	}

	if err := runScheduled(conf, flags.dryRun); err != nil {
		appLog.Error("scheduler failed", err, "schedule", conf.Schedule)
		os.Exit(1)
	}
}

// runScheduled regenerates the feed once now and then on every cron tick
// until SIGINT/SIGTERM. Failed runs are logged and leave the previous
// artifacts untouched.
func runScheduled(conf *config.Config, dryRun bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	job := func() {
		if _, err := runOnce(conf, dryRun, time.Now()); err != nil {
			appLog.Error("scheduled feed generation failed", err, "events", conf.Events)
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(conf.Schedule, job); err != nil {
		return err
	}

	job()
	c.Start()
	appLog.Info("scheduler started", "schedule", conf.Schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("alistcal exiting")
	return nil
}

func applyFlags(conf *config.Config, f flagConfig) {
	if f.events != "" {
		conf.Events = f.events
	}
	if f.outDir != "" {
		conf.OutDir = f.outDir
	}
	if f.schedule != "" {
		conf.Schedule = f.schedule
	}
	if f.logLevel != "" {
		conf.LogLevel = f.logLevel
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "alistcal.yaml", "Path to config file (optional)")
	flag.StringVar(&cfg.events, "events", "", "Path to events YAML (overrides config)")
	flag.StringVar(&cfg.outDir, "out", "", "Output directory (overrides config)")
	flag.StringVar(&cfg.schedule, "schedule", "", "Cron spec; keep running and regenerate on each tick")
	flag.StringVar(&cfg.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Render and verify the feed without writing files")

	flag.Parse()

	return cfg
}
