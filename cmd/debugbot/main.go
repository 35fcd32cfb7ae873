// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/bureau-foundation/debugbot/debugbot"
	"github.com/bureau-foundation/debugbot/lib/clock"
	"github.com/bureau-foundation/debugbot/lib/config"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/crawl"
	"github.com/bureau-foundation/debugbot/lib/logstore"
	"github.com/bureau-foundation/debugbot/lib/pacing"
	"github.com/bureau-foundation/debugbot/lib/process"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/lib/schedule"
	"github.com/bureau-foundation/debugbot/lib/version"
	"github.com/bureau-foundation/debugbot/messaging"
)

// consoleUser is the atom the console speaks as.
var consoleUser = ref.MustParseAtomID("atom:console-user")

// defaultConversation is the console's first conversation when no
// fixture names one.
var defaultConversation = ref.MustParseConversationID("conn:console")

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

// usageError marks command line mistakes, which exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }
func (e usageError) ExitCode() int { return 2 }

func run() error {
	var configPath, seedPath, snapshotPath string
	flagSet := pflag.NewFlagSet("debugbot", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to debugbot.yaml (default: $DEBUGBOT_CONFIG, then built-in defaults)")
	flagSet.StringVar(&seedPath, "seed", "", "JSONC conversation fixture to load before starting")
	flagSet.StringVar(&snapshotPath, "snapshot-out", "", "write all conversations to this zstd CBOR snapshot on shutdown")
	showVersion := flagSet.Bool("version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return usageError{err: err}
	}
	if *showVersion {
		fmt.Printf("debugbot %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger, options{
		seedPath:     seedPath,
		snapshotPath: snapshotPath,
		in:           os.Stdin,
		out:          os.Stdout,
		color:        term.IsTerminal(int(os.Stdout.Fd())),
	})
}

// loadConfig reads the file at path, the file named by DEBUGBOT_CONFIG
// when path is empty, or the defaults when neither is set.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	case os.Getenv("DEBUGBOT_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	handlerOptions := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOptions)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOptions)), nil
}

// options holds what serve needs beyond the config.
type options struct {
	seedPath     string
	snapshotPath string
	in           io.Reader
	out          io.Writer
	color        bool
}

// serve wires the bot to the store and the console and runs until the
// console is done or ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts options) error {
	timing, err := cfg.Timing()
	if err != nil {
		return err
	}
	atom, err := ref.ParseAtomID(cfg.Bot.Atom)
	if err != nil {
		return fmt.Errorf("bot.atom: %w", err)
	}

	store, err := logstore.Open(logstore.Config{Path: cfg.Store.Path, PoolSize: cfg.Store.PoolSize, Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close()

	current := defaultConversation
	if opts.seedPath != "" {
		fixture, err := convlog.LoadFixture(opts.seedPath)
		if err != nil {
			return err
		}
		count, err := store.AppendAll(ctx, fixture.Messages)
		if err != nil {
			return fmt.Errorf("seeding store: %w", err)
		}
		if !fixture.Conversation.IsZero() {
			current = fixture.Conversation
		}
		logger.Info("store seeded", "path", opts.seedPath, "messages", count, "conversation_id", current)
	}

	realClock := clock.Real()
	sender, err := messaging.NewLogSender(messaging.LogSenderConfig{
		Atom:   atom,
		Sink:   store,
		Clock:  realClock,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	transcript := messaging.NewTranscript(opts.out, messaging.TranscriptOptions{Color: opts.color, Self: atom})
	sender.Observe(func(message convlog.Message) {
		if err := transcript.Write(message); err != nil {
			logger.Warn("writing transcript", "message_id", message.ID, "error", err)
		}
	})

	cache := crawl.NewCache(crawl.NewSourceCrawler(store, realClock), cfg.Cache.Eager, logger)
	sender.Observe(cache.Observe)
	crawler := crawl.NewBounded(cache, timing.CrawlTimeout, logger)

	scheduler := schedule.New(realClock, logger)
	defer scheduler.Close()

	lifecycle, err := debugbot.NewLocalLifecycle(debugbot.LocalLifecycleConfig{
		Sender: sender,
		Notify: func(text string) { fmt.Fprintf(opts.out, "* %s\n", text) },
		Logger: logger,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(version.Collector(), collectors.NewGoCollector())

	bot, err := debugbot.New(debugbot.Config{
		Atom:      atom,
		Sender:    sender,
		Crawler:   crawler,
		Lifecycle: lifecycle,
		Scheduler: scheduler,
		Cache:     cache,
		Pacing:    pacing.NewTracker(),
		Clock:     realClock,
		Timing:    timing,
		Chatty:    cfg.Chatty,
		Metrics:   debugbot.NewMetrics(registry),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	events := make(chan debugbot.Event)
	terminal := &console{
		sender:          sender,
		user:            consoleUser,
		out:             opts.out,
		events:          events,
		newConversation: func() ref.ConversationID { return ref.MustParseConversationID("conn:" + uuid.NewString()) },
		logger:          logger,
		current:         current,
		known:           []ref.ConversationID{current},
	}

	runContext, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupContext := errgroup.WithContext(runContext)
	group.Go(func() error { return bot.Run(groupContext, events) })
	group.Go(func() error {
		defer cancel()
		return terminal.run(groupContext, opts.in)
	})
	if cfg.Metrics.Listen != "" {
		group.Go(func() error { return serveMetrics(groupContext, cfg.Metrics.Listen, registry, logger) })
	}

	logger.Info("debugbot started",
		"version", version.Info(),
		"atom", atom,
		"conversation_id", current,
		"store", cfg.Store.Path,
	)
	fmt.Fprintf(opts.out, "* talking to %s in %s; type 'usage' to begin\n", atom, current)

	runErr := group.Wait()
	if opts.snapshotPath != "" {
		if err := writeSnapshot(context.WithoutCancel(ctx), store, opts.snapshotPath); err != nil {
			runErr = errors.Join(runErr, err)
		} else {
			logger.Info("snapshot written", "path", opts.snapshotPath)
		}
	}
	return runErr
}

// serveMetrics serves /metrics until ctx is done.
func serveMetrics(ctx context.Context, address string, registry *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()
	logger.Info("metrics endpoint listening", "address", address)

	select {
	case err := <-serveErr:
		return fmt.Errorf("metrics endpoint: %w", err)
	case <-ctx.Done():
	}
	shutdownContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownContext); err != nil {
		return fmt.Errorf("stopping metrics endpoint: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics endpoint: %w", err)
	}
	return nil
}

// writeSnapshot writes every conversation in store to path.
func writeSnapshot(ctx context.Context, store *logstore.Store, path string) error {
	conversations, err := store.Conversations(ctx)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}
	var messages []convlog.Message
	for _, conversation := range conversations {
		conversationMessages, err := store.Messages(ctx, conversation)
		if err != nil {
			return fmt.Errorf("reading %s: %w", conversation, err)
		}
		messages = append(messages, conversationMessages...)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err := convlog.WriteSnapshot(file, messages); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	return nil
}
