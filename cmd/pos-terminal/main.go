package main

import (
	"context"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/andreasstove999/pos-terminal-go/internal/cart"
	"github.com/andreasstove999/pos-terminal-go/internal/config"
	"github.com/andreasstove999/pos-terminal-go/internal/gateway"
	"github.com/andreasstove999/pos-terminal-go/internal/session"
	"github.com/andreasstove999/pos-terminal-go/internal/terminal"
)

func main() {
	cfg := config.Load()

	logger := log.New(os.Stderr, "[pos-terminal] ", log.LstdFlags|log.Lshortfile)

	base, err := url.Parse(cfg.CashierURL)
	if err != nil {
		logger.Fatalf("invalid CASHIER_URL %q: %v", cfg.CashierURL, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		logger.Fatalf("create cookie jar: %v", err)
	}
	httpClient := &http.Client{Timeout: cfg.RequestTimeout, Jar: jar}

	tokens := &gateway.CookieToken{
		Jar:      jar,
		Base:     base,
		Fallback: gateway.StaticToken(cfg.FallbackCSRFToken),
	}

	gw := gateway.New(cfg.CashierURL, httpClient, tokens, cfg.RegisterID, logger)
	mirror := cart.NewMirror()
	sess := session.New(gw, mirror, logger)
	ctrl := terminal.NewController(gw, mirror, sess, cfg.EditDebounce, logger, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Printf("connected to %s (caja %s)", cfg.CashierURL, cfg.RegisterID)
	if err := ctrl.Run(ctx, os.Stdin); err != nil && err != context.Canceled {
		logger.Fatalf("terminal loop: %v", err)
	}
}
