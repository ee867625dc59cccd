package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"treasure-hunt/auth"
	"treasure-hunt/contract"
	"treasure-hunt/infrastructure/discord"
	"treasure-hunt/infrastructure/gateway"
	"treasure-hunt/infrastructure/storage"
	"treasure-hunt/internal"
	"treasure-hunt/moderation"
	"treasure-hunt/observability"
	"treasure-hunt/projection"
	"treasure-hunt/repositories"
	"treasure-hunt/runtime"
	"treasure-hunt/runtime/workers"
	"treasure-hunt/services"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes reported to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until a signal arrives, then shuts down in reverse order.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharacterReplacement)
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	if !config.OAuthConfigured() {
		log.Warn("DISCORD_CLIENT_ID or DISCORD_CLIENT_SECRET missing, identity linking will fail upstream")
	}

	// 2. Persistent store
	backend, err := storage.Open(config.StoreBackend, config.BadgerFilepath, config.DataDir, log)
	if err != nil {
		return exitRuntime, fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Closing store failed", "error", err)
		}
	}()
	dataset, err := backend.Load()
	if err != nil {
		return exitRuntime, fmt.Errorf("loading store: %w", err)
	}
	links := repositories.NewLinkRepository(backend, dataset.Links, log)
	messages := repositories.NewMessageRepository(backend, dataset.Messages, log)
	log.Info("Store loaded", "backend", config.StoreBackend, "links", links.Len(), "messages", messages.Len())

	// 3. Observability & projections
	metrics := observability.NewMetrics()
	monitoring := observability.NewMonitoringManager()
	counts := func() (int, int) { return links.Len(), messages.Len() }

	searchIndex, err := projection.NewSearchIndex(log)
	if err != nil {
		return exitRuntime, fmt.Errorf("opening search index: %w", err)
	}
	defer func() { _ = searchIndex.Close() }()
	if err := searchIndex.Index(dataset.Messages...); err != nil {
		return exitRuntime, fmt.Errorf("indexing chat history: %w", err)
	}

	moderator, err := buildModerator(config.ModerationWordsPath, charReplacement, log)
	if err != nil {
		return exitConfig, err
	}

	// 4. Identity provider & state
	provider := discord.NewProvider(discord.Config{
		ClientID:     config.DiscordClientID,
		ClientSecret: config.DiscordClientSecret,
		RedirectURL:  config.DiscordRedirectURI,
		AuthURL:      config.DiscordAuthURL,
		TokenURL:     config.DiscordTokenURL,
		UserURL:      config.DiscordUserURL,
		Timeout:      config.UpstreamTimeout,
	}, log)
	var state contract.StateCodec = auth.PlainState{}
	if config.StateSecret != "" {
		state = auth.NewSignedState(config.StateSecret)
	}

	// 5. Hub & services
	relay := services.NewRelayService(services.RelayMode(config.RelayMode), links, messages, log, config.StrictAddresses)
	hub := runtime.NewHub(log, runtime.NewRegistry(), relay, metrics).AddSinks(searchIndex)

	chat := services.NewChatService(messages, hub, moderator, searchIndex, metrics, log, services.ChatLimits{
		MaxUserLength: config.MaxUserLength,
		MaxTextLength: config.MaxContentLength,
		SearchLimit:   config.SearchLimit,
	})
	identity := services.NewIdentityService(links, provider, state, hub, metrics, log, config.StrictAddresses)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewProcessStatsWorker(log, config.StatsInterval, monitoring, metrics, counts))
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(ctx)
	}()

	// 7. HTTP & WebSocket gateway
	gw := gateway.NewServer(gateway.Deps{
		Chat:       chat,
		Identity:   identity,
		Hub:        hub,
		Monitoring: monitoring,
		Metrics:    metrics,
		Log:        log,
		Counts:     counts,
	}, gateway.Options{
		AllowedOrigins:       config.Origins(),
		ClientAppURL:         config.ClientAppURL,
		ConnectionBufferSize: config.ConnectionBufferSize,
		MaxFrameSize:         config.MaxFrameSize,
		RelayRate:            config.RelayRate,
		RelayBurst:           config.RelayBurst,
	})
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           gw.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "relay_mode", config.RelayMode, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	hub.Shutdown()
	stop()
	<-supervisorDone
	log.Info("Program stopped cleanly")

	return code, runErr
}

// buildModerator returns nil when no word list is configured.
func buildModerator(path string, char rune, log *slog.Logger) (contract.Moderator, error) {
	if path == "" {
		return nil, nil
	}
	words, err := moderation.LoadWords(os.DirFS(path), ".")
	if err != nil {
		return nil, fmt.Errorf("loading moderation words from %s: %w", path, err)
	}
	moderator, err := moderation.NewModerator(words.Words, char, log)
	if err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "words", len(words.Words), "languages", words.Languages)
	return moderator, nil
}
