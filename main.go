// ABOUTME: Entry point for the forward-to-calendar Telegram bot
// ABOUTME: Wires config, stores, OAuth broker, calendar gateway, transport, and HTTP listener
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

	"github.com/goodmemory/goodmemory-bot/bot"
	"github.com/goodmemory/goodmemory-bot/config"
	"github.com/goodmemory/goodmemory-bot/gcal"
	"github.com/goodmemory/goodmemory-bot/store"
	"github.com/goodmemory/goodmemory-bot/web"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	tokens := store.NewTokenStore(cfg.TokenFile)
	drafts := store.NewDraftStore()
	broker := gcal.NewBroker(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURL(), tokens)
	gateway := gcal.NewGateway(broker.Config())

	controller := bot.NewController(drafts, tokens, gateway, broker.AuthURL)
	telegram, err := bot.NewTelegram(cfg.TelegramToken, controller)
	if err != nil {
		log.Fatalf("failed to start telegram transport: %v", err)
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: web.NewServer(broker, telegram).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("oauth redirect: %s", cfg.RedirectURL())
		log.Printf("http listening on %s", cfg.ListenAddr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	go telegram.Run(ctx)

	<-ctx.Done()
	log.Println("shutting down")

	// Stop the inbound listener gracefully; in-flight external calls are
	// not awaited.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
