package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"krscreener/auth"
	"krscreener/config"
	qhttp "krscreener/http"
	"krscreener/logging"
	"krscreener/market/providers"
	"krscreener/screener"
	"krscreener/symbols"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	hashPassword := flag.String("hash-password", "", "print the hash for a password and exit")
	flag.Parse()

	if *hashPassword != "" {
		fmt.Println(auth.HashPassword(*hashPassword))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logging.New(cfg)
	defer logger.Sync()

	gate, err := auth.NewGate(cfg.Auth.PasswordHash)
	if err != nil {
		logger.Fatalw("invalid password hash", "err", err)
	}

	// Price history: uploaded series first, then Daum, then Naver.
	history := providers.NewManager(logger)
	history.AddProvider(providers.NewDaumProvider())
	history.AddProvider(providers.NewNaverProvider())

	// Symbol resolution: uploads beat the KRX master, which beats Naver
	// autocomplete, which beats the embedded table.
	uploaded := symbols.NewStaticSource("uploaded", nil)
	reslv := symbols.NewResolver(logger,
		uploaded,
		symbols.NewKRXSource(),
		symbols.NewNaverSearchSource(),
		symbols.EmbeddedSource{},
	)

	session := screener.NewSession(history, logger)
	session.SetDelay(cfg.FetchDelay())

	server := qhttp.NewServer(cfg, logger, gate, reslv, history, session, uploaded)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := config.Watch(ctx, *configPath, logger, func(next *config.Config) {
			session.SetDelay(next.FetchDelay())
		})
		if err != nil && ctx.Err() == nil {
			logger.Warnw("config watcher exited", "err", err)
		}
	}()

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatalw("http server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infow("shutting down")

	cancel()
	if err := server.Stop(); err != nil {
		logger.Warnw("server forced to shutdown", "err", err)
	}
}
