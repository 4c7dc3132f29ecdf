// serve.go implements the "serve" and "healthcheck" commands.

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/adam2504/conversion-msg-to-pdf/convert"
	"github.com/adam2504/conversion-msg-to-pdf/web"
)

// cmdServe starts the HTTP API. All settings come from MSG2PDF_*
// environment variables (or a .env file).
func cmdServe() {
	cfg, err := web.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := serverLogger(cfg.LogLevel)

	opts := convert.DefaultOptions()
	opts.InlineRemoteImages = cfg.InlineRemoteImages
	opts.Logger = log
	conv := convert.New(opts)

	srv := web.NewServer(cfg, conv, log)

	go func() {
		if err := srv.Listen(); err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	if err := srv.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

// serverLogger builds the structured logger for serve mode.
func serverLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// cmdHealthcheck performs a lightweight HTTP health check against the
// local server. It is the container HEALTHCHECK command, so the image
// needs no curl or wget.
//
// Usage:  msg2pdf healthcheck [url]   (default http://localhost:8080/health)
// Exit 0 = healthy, exit 1 = unhealthy.
func cmdHealthcheck(args []string) {
	url := "http://localhost:8080/health"
	if len(args) > 0 {
		url = args[0]
		if !strings.Contains(url, "://") {
			url = "http://localhost:" + url + "/health"
		}
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "healthcheck failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}
	os.Exit(0)
}
