package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"running-bot/internal/catalog"
	"running-bot/internal/config"
	"running-bot/internal/server"
	"running-bot/internal/store"
	"running-bot/internal/tgbot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	cat := catalog.New(st)
	if cfg.CompetitionsFile != "" {
		n, err := cat.ImportFile(cfg.CompetitionsFile)
		if err != nil {
			log.Fatalf("import competitions: %v", err)
		}
		log.Printf("competitions file: %d listings", n)
	}

	botApp, err := tgbot.New(cfg, st, cat)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	httpSrv := server.New(cfg, botApp)

	// Start HTTP server
	go func() {
		log.Printf("HTTP listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	// Start Telegram
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := botApp.Run(ctx); err != nil {
			log.Printf("bot stopped: %v", err)
			cancel()
		}
	}()

	// Stale proposal sweeper
	go botApp.RunSweeper(ctx)

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	cancel()
	ctxTimeout, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(ctxTimeout)

	log.Println("bye")
}
