package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"

	"tradepost/internal/app"
	"tradepost/internal/viewer"
	"tradepost/pkg/config"
	"tradepost/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	ui := flag.Bool("ui", false, "open the trading post window")
	showLog := flag.Bool("log", false, "open the log window (requires -ui)")
	flag.Parse()

	logLevel := zerolog.InfoLevel
	if *debug {
		logLevel = zerolog.DebugLevel
	}

	log, err := logger.NewLogger(
		logger.WithConsole(),
		logger.WithLevel(logLevel),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting Trading Post",
		"version", "1.0.0",
		"pid", os.Getpid(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
		"debug", *debug,
		"ui", *ui)

	cfg, err := config.FindConfig(*configPath, log)
	if err != nil {
		log.Error("Failed to load configuration", err, "provided_path", *configPath)
		os.Exit(1)
	}
	log.Info("Configuration loaded successfully",
		"backend_url", cfg.GetBackendURL(),
		"host_socket", cfg.GetHostSocket(),
		"database_path", cfg.GetDatabasePath())

	tp, err := app.NewTradePost(cfg, log)
	if err != nil {
		log.Fatal("Failed to create trading post", err)
	}
	defer tp.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*ui {
		if err := tp.Run(ctx); err != nil {
			log.Fatal("Application error", err)
		}
		return
	}

	a := fyneapp.NewWithID("io.tradepost.overlay")
	if *showLog {
		panel := viewer.NewLogPanel(a, log)
		log.AddWriter(viewer.NewLogWriter(panel))
		panel.Show()
	}

	if err := tp.Start(ctx); err != nil {
		log.Fatal("Failed to start trading post", err)
	}

	w := viewer.New(a, tp.Hub, log)
	go func() {
		<-ctx.Done()
		a.Quit()
	}()
	w.ShowAndRun()
}
