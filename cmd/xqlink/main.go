package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atopx/chessboard/internal/config"
	"github.com/atopx/chessboard/internal/engine"
	"github.com/atopx/chessboard/internal/iface"
	"github.com/atopx/chessboard/internal/storage"
	"github.com/atopx/chessboard/internal/tracker"
	"github.com/atopx/chessboard/internal/vision"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "config.json", "Path to configuration file")
	addr := flag.String("addr", "", "Override the control API listen address")
	autoStart := flag.Bool("start", false, "Start listening for the board immediately")
	videoPath := flag.String("video", "", "Replay a screen recording instead of capturing the screen")
	console := flag.Bool("console", true, "Print moves and analysis to the terminal")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose {
		cfg.Interface.LogLevel = "debug"
	}
	if *addr != "" {
		cfg.Interface.ListenAddr = *addr
	}

	logger, err := iface.NewLogger(cfg.Interface.LogPath, cfg.Interface.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	opts := runOptions{
		configPath: *configPath,
		autoStart:  *autoStart,
		videoPath:  *videoPath,
		console:    *console,
	}
	if err := run(cfg, opts, logger); err != nil {
		logger.Error("Exited with error", zap.Error(err))
		os.Exit(1)
	}
}

type runOptions struct {
	configPath string
	autoStart  bool
	videoPath  string
	console    bool
}

func run(cfg *config.Config, opts runOptions, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := config.NewStore(opts.configPath, cfg, logger.Named("config"))

	journal, err := storage.OpenJournal(cfg.Storage.DBPath, logger.Named("journal"))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	provider := engine.NewFallback(engine.NewCloudBook(), engine.SpawnSession, func() engine.Params {
		return engineParams(store.Get().Engine)
	}, logger.Named("engine"))
	defer provider.Close()

	detector, err := vision.NewONNXDetector(visionConfig(cfg))
	if err != nil {
		return fmt.Errorf("load detector: %w", err)
	}
	defer detector.Close()

	var source vision.Source = vision.NewCapturer(visionConfig(cfg).CaptureRegion.ToRectangle())
	if opts.videoPath != "" {
		video, err := vision.NewVideoSource(opts.videoPath, true)
		if err != nil {
			return err
		}
		defer video.Close()
		source = video
		logger.Info("Replaying recording", zap.String("path", opts.videoPath))
	}
	observer := vision.NewObserver(source, detector, logger.Named("vision"))

	hub := iface.NewHub(logger.Named("hub"))
	publishers := tracker.Multi{hub, journal}
	if opts.console {
		out := iface.NewStdoutConsole()
		out.PrintBanner(cfg.Interface.ListenAddr)
		publishers = append(publishers, out)
	}
	worker := tracker.NewWorker(observer, provider, publishers, func() tracker.Options {
		return trackerOptions(store.Get())
	}, logger.Named("tracker"))
	defer worker.Stop()

	server := iface.NewServer(ctx, worker, store, journal, hub, logger.Named("api"))

	if opts.autoStart {
		if err := worker.Start(ctx); err != nil {
			return fmt.Errorf("start listening: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return store.Watch(gctx)
	})
	g.Go(func() error {
		return server.Listen(store.Get().Interface.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		worker.Stop()
		return server.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func engineParams(e config.EngineConfig) engine.Params {
	return engine.Params{
		CloudEnabled: e.CloudEnabled,
		CloudTimeout: e.CloudTimeout(),
		EnginePath:   e.Path,
		Options: engine.Options{
			Threads:  e.Threads,
			HashMB:   e.HashMB,
			EvalFile: e.EvalFile,
			ShowWDL:  e.ShowWDL,
		},
		Limits: engine.Limits{
			Depth:          e.Depth,
			MoveTimeMillis: e.TimeMS,
		},
	}
}

func trackerOptions(cfg config.Config) tracker.Options {
	return tracker.Options{
		PollInterval: cfg.Listen.Interval(),
		ConfirmDelay: cfg.Listen.Confirm(),
		PVNotation:   cfg.Engine.PVNotation,
	}
}

func visionConfig(cfg *config.Config) *vision.Config {
	vc := vision.DefaultConfig()
	vc.ModelPath = cfg.Detector.ModelPath
	vc.Confidence = float32(cfg.Detector.Confidence)
	vc.IoU = float32(cfg.Detector.IoU)
	vc.CaptureRegion = vision.CaptureRegion{
		X:      cfg.Listen.Region.X,
		Y:      cfg.Listen.Region.Y,
		Width:  cfg.Listen.Region.Width,
		Height: cfg.Listen.Region.Height,
	}
	return vc
}
