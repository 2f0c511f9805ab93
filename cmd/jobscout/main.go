package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/baxromumarov/jobscout/internal/api"
	"github.com/baxromumarov/jobscout/internal/crawler"
	"github.com/baxromumarov/jobscout/internal/pattern"
	"github.com/baxromumarov/jobscout/internal/render"
	"github.com/baxromumarov/jobscout/internal/writer"
)

const defaultBrowserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func main() {
	var (
		homeURL     = flag.String("home-url", "", "career page URL to crawl (required)")
		patternPath = flag.String("pattern", "", "path to the pattern YAML for this site (required)")
		outputPath  = flag.String("output", "jobs.json", "path for the JSON result")
		userAgent   = flag.String("user-agent", defaultBrowserUA, "User-Agent header for all requests")
		renderMode  = flag.String("render", "auto", "page rendering: auto, browser or http")
		chromePath  = flag.String("chrome", "", "path to a Chrome binary (browser rendering only)")
		serveAddr   = flag.String("serve", "", "keep running and serve results on this address, e.g. :8080")
		logFile     = flag.String("log-file", "", "write logs to this file instead of stderr")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	setupLogging(*logFile, *verbose)

	if *homeURL == "" || *patternPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*homeURL, *patternPath, *outputPath, *userAgent, *renderMode, *chromePath, *serveAddr); err != nil {
		slog.Error("crawl failed", "error", err)
		os.Exit(1)
	}
}

func run(homeURL, patternPath, outputPath, userAgent, renderMode, chromePath, serveAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := pattern.Load(patternPath)
	if err != nil {
		return err
	}

	renderer, closeRenderer, err := pickRenderer(renderMode, userAgent, chromePath, cfg)
	if err != nil {
		return err
	}
	defer closeRenderer()

	c, err := crawler.New(cfg, renderer)
	if err != nil {
		return err
	}

	result, err := c.Run(ctx, homeURL)
	if err != nil {
		return err
	}

	if err := writer.WriteJSON(outputPath, result); err != nil {
		return err
	}
	slog.Info("result written", "path", outputPath, "total_jobs", result.TotalJobs)

	if serveAddr == "" {
		return nil
	}

	srv := api.NewServer()
	srv.SetResult(result)
	httpServer := &http.Server{Addr: serveAddr, Handler: srv.Router()}
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()
	slog.Info("serving results", "addr", serveAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// pickRenderer maps the -render flag to an implementation. In auto mode a
// pattern that declares a wait condition gets the browser, since waits only
// make sense on pages that build their DOM with JavaScript.
func pickRenderer(mode, userAgent, chromePath string, cfg *pattern.Config) (render.Renderer, func(), error) {
	noop := func() {}

	useBrowser := false
	switch mode {
	case "browser":
		useBrowser = true
	case "http":
	case "auto":
		useBrowser = cfg.WaitFor.Type != pattern.WaitNone
	default:
		return nil, noop, fmt.Errorf("unknown render mode %q (want auto, browser or http)", mode)
	}

	if !useBrowser {
		return render.NewStaticRenderer(userAgent), noop, nil
	}

	browser, err := render.NewBrowserRenderer(userAgent, chromePath)
	if err != nil {
		return nil, noop, err
	}
	return browser, func() {
		if err := browser.Close(); err != nil {
			slog.Warn("browser shutdown", "error", err)
		}
	}, nil
}

func setupLogging(logFile string, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	if logFile != "" {
		out = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
