package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tradews/internal/adapter/buffer"
	"tradews/internal/adapter/feed"
	"tradews/internal/adapter/handler"
	"tradews/internal/adapter/storage"
	"tradews/internal/adapter/ws"
	"tradews/internal/application/service"
	"tradews/internal/application/usecase"
	"tradews/internal/domain/port"
	"tradews/internal/infrastructure/config"
	"tradews/internal/infrastructure/logger"
	"tradews/internal/infrastructure/server"
)

var (
	portFlag   = flag.Int("port", 0, "Port number")
	configFlag = flag.String("config", "configs/config.yaml", "Path to config file")
	helpFlag   = flag.Bool("help", false, "Show help")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *portFlag != 0 {
		cfg.Server.Port = *portFlag
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting tradews", "symbols", cfg.Symbols)

	postgresAdapter, err := storage.NewPostgresAdapter(cfg.PostgresDSN())
	if err != nil {
		log.Error("failed to initialize postgres", "error", err)
		os.Exit(1)
	}
	defer postgresAdapter.Close()

	if err := postgresAdapter.InitSchema(context.Background()); err != nil {
		log.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	var tradeBuffer port.TradeBufferPort
	switch cfg.Buffer.Backend {
	case "redis":
		tradeBuffer, err = buffer.NewRedisBuffer(
			cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Buffer.Retention)
		if err != nil {
			log.Error("failed to initialize redis buffer", "error", err)
			os.Exit(1)
		}
	default:
		tradeBuffer = buffer.NewMemoryBuffer(cfg.Buffer.Retention)
	}
	defer tradeBuffer.Close()
	log.Info("trade buffer ready", "backend", cfg.Buffer.Backend, "retention", cfg.Buffer.Retention)

	hub := ws.NewHub(log)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	candles := usecase.NewCandleUseCase(postgresAdapter)

	binanceFeed := feed.NewBinanceFeed(
		cfg.Feed.WSURL,
		cfg.Symbols,
		feed.FixedDelay{Delay: cfg.Feed.ReconnectDelay},
		log,
	)
	ingestion := service.NewIngestionService(binanceFeed, tradeBuffer, log)

	aggregation := service.NewAggregationService(tradeBuffer, postgresAdapter, hub, log, cfg.Symbols)

	ctx, cancel := context.WithCancel(context.Background())

	go ingestion.Run(ctx)
	aggregation.Start(ctx, cfg.Aggregation.Interval)

	healthHandler := handler.NewHealthHandler(postgresAdapter, tradeBuffer, ingestion, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Check)
	mux.HandleFunc("/ws", ws.ServeWS(hub, candles, log))

	srv := server.New(cfg.Server.Port, mux, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, log)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down gracefully")

	// Stop ingestion first so no new trades land mid-drain, run the final
	// aggregation cycle, then tear down the hub and the HTTP server.
	cancel()
	aggregation.Stop()
	hubCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	log.Info("shutdown complete")
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  tradews [--port <N>] [--config <path>]")
	fmt.Println("  tradews --help")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --port N        Port number")
	fmt.Println("  --config PATH   Path to YAML config (default configs/config.yaml)")
}
