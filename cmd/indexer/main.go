package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/arcscan/bridge-indexer/internal/api"
	"github.com/arcscan/bridge-indexer/internal/chains"
	"github.com/arcscan/bridge-indexer/internal/config"
	"github.com/arcscan/bridge-indexer/internal/indexer"
	"github.com/arcscan/bridge-indexer/internal/rpc"
	"github.com/arcscan/bridge-indexer/internal/storage"
	"github.com/arcscan/bridge-indexer/internal/worker"
	"github.com/arcscan/bridge-indexer/pkg/common/constant"
	"github.com/arcscan/bridge-indexer/pkg/common/logger"
	"github.com/arcscan/bridge-indexer/pkg/common/types"
	"github.com/arcscan/bridge-indexer/pkg/events"
	"github.com/arcscan/bridge-indexer/pkg/infra"
	"github.com/arcscan/bridge-indexer/pkg/kvstore"
	"github.com/arcscan/bridge-indexer/pkg/ratelimiter"
	"github.com/arcscan/bridge-indexer/pkg/store/cursorstore"
)

const transferStreamName = "bridge-transfers"

func main() {
	root := &cobra.Command{
		Use:   "bridge-indexer",
		Short: "Multichain bridge transfer indexer and analytics API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), true, true)
		},
	}

	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Run only the analytics API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), false, true)
		},
	}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Run only the chain indexer workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), true, false)
		},
	}

	var durable string
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Subscribe to the transfer event stream and print messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventPrinter(cmd.Context(), durable)
		},
	}
	eventsCmd.Flags().StringVar(&durable, "durable", "",
		"drain the work queue through a durable consumer instead of a plain subscription")

	root.AddCommand(apiCmd, indexCmd, eventsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, withWorkers, withAPI bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(&logger.Options{
		Level:   logger.ParseLevel(cfg.LogLevel),
		NoColor: cfg.IsProduction(),
	})
	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"poll_interval", cfg.PollInterval,
		"batch_size", cfg.BatchSize,
		"sync_days", cfg.SyncDays,
	)

	registry, err := chains.Load(cfg)
	if err != nil {
		return fmt.Errorf("load chain registry: %w", err)
	}
	if len(registry.All()) == 0 {
		logger.Warn("No chains active; set RPC_<CHAIN> endpoints to enable indexing")
	}

	db, err := infra.NewDBConnection(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	store := storage.New(db)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	redis, err := infra.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis unavailable, stats caching disabled", "err", err)
		redis = nil
	}

	var apiServer *api.Server
	if withAPI {
		apiServer = api.NewServer(store, registry, redis, cfg.StatsCacheTTL, cfg.APIPort)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("API server error", "err", err)
			}
		}()
	}

	var manager *worker.Manager
	if withWorkers {
		manager, err = startWorkers(ctx, cfg, registry, store)
		if err != nil {
			return err
		}
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("API shutdown error", "err", err)
		}
	}
	if manager != nil {
		manager.Stop()
	}
	if redis != nil {
		_ = redis.Close()
	}
	return nil
}

func startWorkers(
	ctx context.Context,
	cfg *config.Config,
	registry *chains.Registry,
	store storage.Store,
) (*worker.Manager, error) {
	kv, err := kvstore.NewBadgerStore(cfg.KVDir, "bridge_indexer", infra.JSON)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	cursor := cursorstore.New(kv)

	emitter := buildEmitter(cfg)

	manager := worker.NewManager(ctx, kv, cursor, emitter)
	limiter := ratelimiter.NewPool(cfg.RPC.RequestsPerSecond, cfg.RPC.Burst)

	workerCfg := worker.Config{
		PollInterval:  cfg.PollInterval,
		BatchSize:     uint64(cfg.BatchSize),
		SyncWindow:    time.Duration(cfg.SyncDays) * 24 * time.Hour,
		Confirmations: constant.DefaultReorgDepthBlocks,
	}

	for _, chain := range registry.All() {
		clients := make([]*rpc.EVMClient, 0, len(chain.RPCURLs))
		for _, url := range chain.RPCURLs {
			clients = append(clients, rpc.NewEVMClient(url, cfg.RPC.Timeout, limiter))
		}
		failover, err := rpc.NewFailover(clients, rpc.DefaultFailoverConfig())
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", chain.Key, err)
		}

		deps := worker.WorkerDeps{
			Indexer:   indexer.NewEVMIndexer(chain, registry, failover),
			Chain:     chain,
			Config:    workerCfg,
			Cursor:    cursor,
			Transfers: store,
			Emitter:   emitter,
		}
		manager.AddWorkers(
			worker.NewRegularWorker(ctx, deps),
			worker.NewBackfillWorker(ctx, deps),
			worker.NewRescanWorker(ctx, deps),
		)
		logger.Info("Chain workers registered",
			"chain", chain.Key,
			"endpoints", len(chain.RPCURLs),
			"tokens", len(chain.Tokens),
		)
	}

	manager.Start()
	return manager, nil
}

// buildEmitter wires the NATS transfer stream. Messaging is best effort: when
// NATS is unreachable the indexer still persists transfers.
func buildEmitter(cfg *config.Config) events.Emitter {
	nc, err := infra.GetNATSConnection(cfg.NATSURL)
	if err != nil {
		logger.Warn("NATS unavailable, transfer events disabled", "err", err)
		return nil
	}

	queueManager, err := infra.NewMessageQueueManager(
		transferStreamName,
		[]string{cfg.NATSSubjectPrefix + ".>"},
		nc,
	)
	if err != nil {
		logger.Warn("JetStream unavailable, transfer events disabled", "err", err)
		nc.Close()
		return nil
	}

	return events.NewEmitter(queueManager.NewPublisher(), cfg.NATSSubjectPrefix)
}

// runEventPrinter subscribes to the transfer subjects and prints decoded
// messages until the command context is cancelled. With --durable it drains
// the work-queue stream through a durable consumer; otherwise it observes
// messages on a plain subscription without consuming them.
func runEventPrinter(ctx context.Context, durable string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(&logger.Options{Level: logger.ParseLevel(cfg.LogLevel)})

	nc, err := infra.GetNATSConnection(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	subject := cfg.NATSSubjectPrefix + ".>"

	if durable != "" {
		queueManager, err := infra.NewMessageQueueManager(transferStreamName, []string{subject}, nc)
		if err != nil {
			return fmt.Errorf("open stream: %w", err)
		}
		queue, err := queueManager.NewMessageQueue(durable, "")
		if err != nil {
			return fmt.Errorf("create consumer %q: %w", durable, err)
		}
		if err := queue.Dequeue(func(subj string, message []byte) error {
			fmt.Println(formatTransferMsg(subj, message))
			return nil
		}); err != nil {
			return fmt.Errorf("consume: %w", err)
		}
		logger.Info("Draining", "subject", subject, "durable", durable)
		blockUntilShutdown(ctx, queue.Close)
		return nil
	}

	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		fmt.Println(formatTransferMsg(msg.Subject, msg.Data))
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	logger.Info("Subscribed", "subject", subject)
	blockUntilShutdown(ctx, func() { _ = sub.Unsubscribe() })
	return nil
}

func formatTransferMsg(subject string, data []byte) string {
	var transfer types.TokenTransfer
	if err := transfer.UnmarshalBinary(data); err != nil {
		return fmt.Sprintf("[%s] %s", subject, string(data))
	}
	return fmt.Sprintf("[%s] %s", subject, transfer.String())
}

func blockUntilShutdown(ctx context.Context, stop func()) {
	<-ctx.Done()
	stop()
}
