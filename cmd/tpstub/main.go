// Command tpstub serves a fake trading post backend and game host for local
// development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tradepost/internal/stub"
	"tradepost/pkg/config"
	"tradepost/pkg/logger"
)

func main() {
	apiAddr := flag.String("api", "127.0.0.1:8420", "backend listen address")
	eventsAddr := flag.String("events", "127.0.0.1:8421", "host event feed listen address")
	socket := flag.String("socket", config.DefaultHostSocket, "host bridge socket path")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := zerolog.InfoLevel
	if *debug {
		logLevel = zerolog.DebugLevel
	}
	log, err := logger.NewLogger(
		logger.WithConsole(),
		logger.WithLevel(logLevel),
		logger.WithoutFile(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data := stub.SampleData()
	h := stub.NewHost(*socket, data, log)
	if err := h.Start(ctx); err != nil {
		log.Fatal("Failed to start stub host", err)
	}

	servers := []*http.Server{
		{Addr: *apiAddr, Handler: stub.NewBackend(data, log), ReadHeaderTimeout: 5 * time.Second},
		{Addr: *eventsAddr, Handler: h, ReadHeaderTimeout: 5 * time.Second},
	}
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info("Stub listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Stub server failed", err, "addr", srv.Addr)
				stop()
			}
		}(srv)
	}

	<-ctx.Done()
	log.Info("Shutting down stubs")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shut down stub server", err, "addr", srv.Addr)
		}
	}
}
