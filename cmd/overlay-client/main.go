// Command overlay-client runs a single source-routed overlay video
// client: the networking core described in internal/client, backed by a
// local content store, wired to its neighbours either in-process or over
// a bridge transport, and fronted by the internal/httpapi control surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dronecast/overlay-client/internal/bridge"
	"github.com/dronecast/overlay-client/internal/client"
	"github.com/dronecast/overlay-client/internal/config"
	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/httpapi"
	"github.com/dronecast/overlay-client/internal/metrics"
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/store"
	"github.com/dronecast/overlay-client/internal/wire"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "overlay-client.yaml", "path to client config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "overlay-client: loading config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("exiting with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func run(cfg *config.Config, logger *slog.Logger) error {
	dbRoot := store.Root(cfg.DBRoot, netid.NodeId(cfg.NodeID))
	fsStore, err := store.Open(dbRoot)
	if err != nil {
		return fmt.Errorf("opening content store: %w", err)
	}
	if err := store.LoadManifest(fsStore, cfg.Manifest.Path, cfg.Manifest.SchemaPath, cfg.Manifest.VideosDir); err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.New(registry)

	packetRecv := make(chan wire.Packet, 256)
	controllerRecv := make(chan client.DroneCommand, 16)
	controllerSend := make(chan client.ControllerEvent, 256)

	c := client.New(client.Config{
		ID:                      netid.NodeId(cfg.NodeID),
		ClientType:              forge.ClientTypeVideo,
		PacketRecv:              packetRecv,
		ControllerRecv:          controllerRecv,
		ControllerSend:          controllerSend,
		Store:                   fsStore,
		Metrics:                 collector,
		Logger:                  logger,
		Clock:                   nil,
		HistoryCapacity:         cfg.HistoryCapacity,
		RoutingErrorFloodWindow: cfg.RoutingErrorFloodWindow,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var transport bridge.Transport
	switch cfg.Bridge.Transport {
	case "mqtt":
		transport = bridge.NewMQTT(bridge.MQTTConfig{
			BrokerURL: cfg.Bridge.MQTT.BrokerURL,
			ClientID:  cfg.Bridge.MQTT.ClientID,
			TopicRoot: cfg.Bridge.MQTT.TopicRoot,
			SelfID:    netid.NodeId(cfg.NodeID),
			Logger:    logger,
		})
	case "serial":
		transport = bridge.NewSerial(bridge.SerialConfig{
			Port:     cfg.Bridge.Serial.Port,
			BaudRate: cfg.Bridge.Serial.Baud,
			Logger:   logger,
		})
	}

	if transport != nil {
		var neighbourID netid.NodeId
		if cfg.Bridge.Transport == "mqtt" {
			neighbourID = netid.NodeId(cfg.Bridge.MQTT.NeighbourID)
		} else {
			neighbourID = netid.NodeId(cfg.Bridge.Serial.NeighbourID)
		}
		if err := wireBridge(ctx, transport, neighbourID, packetRecv, controllerRecv); err != nil {
			return fmt.Errorf("starting bridge transport: %w", err)
		}
		defer transport.Stop()
	}

	httpSrv := httpapi.New(httpapi.Config{
		Addr:     fmt.Sprintf(":%d", cfg.HTTPPort),
		Client:   c,
		Registry: registry,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Start(gctx, cfg.FloodInterval)
		return nil
	})
	g.Go(func() error {
		return httpSrv.Run(gctx)
	})
	g.Go(func() error {
		return watchTermination(gctx, c, stop)
	})

	return g.Wait()
}

// watchTermination polls the FSM and cancels the shared context once the
// client reaches Terminated, per §5's termination-watcher requirement.
func watchTermination(ctx context.Context, c *client.Client, cancel context.CancelFunc) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if c.Terminated() {
				cancel()
				return nil
			}
		}
	}
}
