// synctail connects to the dashboard sync socket and streams cache
// changes to the console.
//
// Usage: go run ./cmd/synctail --config configs/syncd.local.yaml [topic ...]
//
// With no topics it tails the shared collections (gifts, lists,
// occasions, people). Per-list topics work too: list:<id>.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/miethe/family-shopping-dashboard-sub003/internal/cache"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/config"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/connection"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/event"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/model"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/router"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/subscription"
)

func main() {
	configPath := flag.String("config", "configs/syncd.local.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	topics := flag.Args()
	if len(topics) == 0 {
		topics = []string{model.TopicGifts, model.TopicLists, model.TopicOccasions, model.TopicPeople}
	}

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	// Load config
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	wsURL, err := cfg.API.WebSocketURL()
	if err != nil {
		logger.Error("failed to derive websocket url", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	store := cache.NewStore(cfg.Client.UserID, logger)

	mgr := connection.NewManager(connection.ManagerConfig{
		WSURL:              wsURL,
		ReconnectBaseDelay: cfg.Connection.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Connection.ReconnectMaxDelay,
		HeartbeatTimeout:   cfg.Connection.HeartbeatTimeout,
		WriteTimeout:       cfg.Connection.WriteTimeout,
		MessageBufferSize:  cfg.Connection.MessageBufferSize,
	}, logger)

	registry := subscription.NewRegistry(subscription.Config{
		GracePeriod: cfg.Subscription.GracePeriod,
	}, mgr, store, logger)
	defer registry.Close()
	mgr.SetTopicSource(registry)

	rtr := router.NewRouter(router.Config{
		FirehoseBufferSize: cfg.Router.FirehoseBufferSize,
	}, mgr.Messages(), store, logger)

	if err := rtr.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}
	defer rtr.Stop(context.Background())

	mgr.OnStateChange(func(s connection.State) {
		fmt.Printf("# connection %s\n", s)
	})

	viewID := uuid.NewString()
	for _, topic := range topics {
		registry.Subscribe(topic, viewID)
		rtr.Subscribe(topic, func(ev event.Event) {
			printEvent(ev, *verbose)
		})
	}

	if err := mgr.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer mgr.Disconnect()

	fmt.Printf("# tailing %d topic(s): %v\n", len(topics), topics)

	<-ctx.Done()
	fmt.Println("# bye")
}

func printEvent(ev event.Event, verbose bool) {
	if verbose {
		out, err := json.Marshal(ev)
		if err != nil {
			fmt.Printf("%s %-14s %s marshal error: %v\n", ev.ReceivedAt.Format("15:04:05.000"), ev.Kind, ev.Topic, err)
			return
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("%s %-14s %s/%s seq=%d user=%s\n",
		ev.ReceivedAt.Format("15:04:05.000"),
		ev.Kind,
		ev.Topic,
		ev.EntityID,
		ev.Sequence,
		ev.OriginUserID,
	)
}
