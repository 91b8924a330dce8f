package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"

	"vidmatch/internal/config"
	"vidmatch/internal/correlate"
	"vidmatch/internal/emitter"
	"vidmatch/internal/imageproc"
	"vidmatch/internal/progress"
	"vidmatch/internal/report"
	"vidmatch/internal/scan"
	"vidmatch/internal/storage"
	"vidmatch/internal/video"
)

func main() {
	// Define command line flags
	videoPath := flag.String("video", "", "Path to video file (local or URL), or a frame directory with -backend imagedir")
	templatePath := flag.String("template", "", "Path to the image to search for")
	configPath := flag.String("config", "", "Path to a YAML config file")
	threshold := flag.Float64("threshold", 0.8, "Minimum correlation score for a match, in (0, 1]")
	workers := flag.Int("workers", 0, "Number of parallel chunks (0 = number of CPUs)")
	backend := flag.String("backend", "ffmpeg", fmt.Sprintf("Video backend %v", video.Backends()))
	grayMode := flag.String("gray", "luma", "Grayscale conversion: luma or lightness")
	correlator := flag.String("correlator", "ncc", fmt.Sprintf("Correlation implementation %v", correlate.Names()))
	frameRate := flag.Float64("fps", 25, "Frame rate of a frame directory")
	startTime := flag.String("start", "", "Start time (format: HH:MM:SS)")
	endTime := flag.String("end", "", "End time (format: HH:MM:SS)")
	output := flag.String("output", "text", "Output format: text or json")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	storeKind := flag.String("store", "none", "Where to save results: none, json or postgres")
	storeDir := flag.String("store-dir", ".", "Directory for the json store")
	dsn := flag.String("dsn", "", "PostgreSQL connection string for the postgres store")
	broker := flag.String("mqtt", "", "MQTT broker address (host:port) for progress events")
	similar := flag.Int("similar", 0, "List this many earlier scans with a similar template (postgres store only)")

	flag.Parse()

	// Validate required arguments
	if *videoPath == "" || *templatePath == "" {
		fmt.Fprintf(os.Stderr, "Error: -video and -template are required\n")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: config: %v\n", err)
			os.Exit(2)
		}
	}

	// Flags given explicitly win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threshold":
			cfg.Threshold = *threshold
		case "workers":
			cfg.Workers = *workers
		case "backend":
			cfg.Backend = *backend
		case "gray":
			cfg.GrayMode = *grayMode
		case "correlator":
			cfg.Correlator = *correlator
		case "fps":
			cfg.FrameRate = *frameRate
		case "start":
			cfg.Range.Start = *startTime
		case "end":
			cfg.Range.End = *endTime
		case "output":
			cfg.Output = *output
		case "log-level":
			cfg.Log.Level = *logLevel
		case "store":
			cfg.Storage.Kind = *storeKind
		case "store-dir":
			cfg.Storage.Dir = *storeDir
		case "dsn":
			cfg.Storage.DSN = *dsn
		case "mqtt":
			cfg.MQTT.Broker = *broker
		}
	})
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: config: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.SlogLevel(),
			TimeFormat: "15:04:05",
		}),
	)
	slog.SetDefault(logger)

	// Create a context that can be canceled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle termination signals
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		logger.Warn("received termination signal, shutting down")
		cancel()
	}()

	os.Exit(run(ctx, cfg, *videoPath, *templatePath, *similar, logger))
}

func run(ctx context.Context, cfg *config.Config, videoPath, templatePath string, similar int, logger *slog.Logger) int {
	rep := report.New(cfg.Output, os.Stdout, os.Stderr)
	fail := func(stage string, err error) int {
		rep.ReportError(stage, err)
		return 1
	}

	mode, err := imageproc.ParseGrayMode(cfg.GrayMode)
	if err != nil {
		return fail("config", err)
	}

	source, err := video.NewSource(cfg.Backend, video.Options{
		GrayMode:  mode,
		FrameRate: cfg.FrameRate,
		Logger:    logger,
	})
	if err != nil {
		return fail("backend", err)
	}

	corr, err := correlate.New(cfg.Correlator)
	if err != nil {
		return fail("correlator", err)
	}

	tmpl, err := imageproc.LoadTemplate(templatePath, mode)
	if err != nil {
		return fail("template", err)
	}

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fail("storage", err)
	}
	defer store.Close()

	id := uuid.New()
	observers := []progress.Observer{rep.ReportProgress}

	var em *emitter.MQTTEmitter
	if cfg.MQTT.Broker != "" {
		if em, err = emitter.Connect(ctx, cfg.MQTT, logger); err != nil {
			return fail("mqtt", err)
		}
		defer em.Close()
		observers = append(observers, em.Progress(id))
	}

	opts := scan.Options{
		ID:         id,
		Threshold:  cfg.Threshold,
		Workers:    cfg.Workers,
		GrayMode:   mode,
		OnProgress: progress.Multi(observers...),
	}
	if cfg.Range.Start != "" || cfg.Range.End != "" {
		opts.Range = &video.TimeRange{Start: cfg.Range.Start, End: cfg.Range.End}
	}

	logger.Info("starting scan", "video", videoPath, "template", templatePath,
		"backend", cfg.Backend, "correlator", cfg.Correlator)

	res, err := scan.NewCoordinator(source, corr, logger).Scan(ctx, videoPath, tmpl, opts)
	if err != nil {
		return fail("scan", err)
	}
	rep.ReportResult(res)

	sig := imageproc.Signature(tmpl)
	if err := store.Save(ctx, storage.NewRecord(res, templatePath, sig)); err != nil {
		return fail("storage", err)
	}
	if em != nil {
		if err := em.PublishResult(ctx, res); err != nil {
			logger.Warn("failed to publish result", "error", err)
		}
	}

	if similar > 0 {
		pg, ok := store.(*storage.PostgresStore)
		if !ok {
			logger.Warn("-similar needs the postgres store", "store", cfg.Storage.Kind)
			return 0
		}
		scans, err := pg.SimilarScans(ctx, sig, similar)
		if err != nil {
			return fail("similar", err)
		}
		for _, s := range scans {
			if s.ID == res.ID {
				continue
			}
			logger.Info("similar scan", "scan", s.ID.String(), "video", s.Video,
				"template", s.Template, "matches", s.Matches, "distance", s.Distance)
		}
	}
	return 0
}
