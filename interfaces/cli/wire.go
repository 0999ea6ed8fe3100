package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dwellsense/dwellsense/application"
	"github.com/dwellsense/dwellsense/domain/batch"
	"github.com/dwellsense/dwellsense/domain/capability"
	domainnotif "github.com/dwellsense/dwellsense/domain/notification"
	"github.com/dwellsense/dwellsense/domain/pattern"
	"github.com/dwellsense/dwellsense/domain/score"
	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/domain/usage"
	"github.com/dwellsense/dwellsense/infrastructure/bridge"
	"github.com/dwellsense/dwellsense/infrastructure/config"
	"github.com/dwellsense/dwellsense/infrastructure/homeapi"
	"github.com/dwellsense/dwellsense/infrastructure/lifecycle"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
	"github.com/dwellsense/dwellsense/infrastructure/matching"
	"github.com/dwellsense/dwellsense/infrastructure/mining"
	"github.com/dwellsense/dwellsense/infrastructure/nlg"
	"github.com/dwellsense/dwellsense/infrastructure/notification"
	"github.com/dwellsense/dwellsense/infrastructure/parser"
	"github.com/dwellsense/dwellsense/infrastructure/ranking"
	"github.com/dwellsense/dwellsense/infrastructure/runlock"
	"github.com/dwellsense/dwellsense/infrastructure/runtime"
	"github.com/dwellsense/dwellsense/infrastructure/scoring"
	"github.com/dwellsense/dwellsense/infrastructure/storage/memory"
	"github.com/dwellsense/dwellsense/infrastructure/storage/postgres"
	"github.com/dwellsense/dwellsense/infrastructure/storage/sqlite"
	"github.com/dwellsense/dwellsense/infrastructure/suggesting"
	"github.com/dwellsense/dwellsense/infrastructure/telemetry"
)

// system is the wired dependency graph one command runs against.
type system struct {
	cfg *config.Config

	batch     *application.BatchService
	query     *application.QueryService
	lifecycle *lifecycle.Manager

	pool      *pgxpool.Pool
	sqlite    *sqlite.SnapshotStore
	bridgeMQ  *bridge.MQTTSource
	notifier  domainnotif.Notifier
	telemetry *telemetry.Provider
}

// close releases every connection the build opened.
func (s *system) close() {
	if s.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.telemetry.Shutdown(shutdownCtx)
		cancel()
	}
	if s.bridgeMQ != nil {
		s.bridgeMQ.Close()
	}
	if s.notifier != nil {
		_ = s.notifier.Close()
	}
	if s.sqlite != nil {
		_ = s.sqlite.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// buildSystem wires the full graph from configuration. Postgres, Redis, and
// the MQTT bridge are optional; without them the system falls back to
// in-process state, which is enough for a single-machine install.
func buildSystem(ctx context.Context, cfg *config.Config) (*system, error) {
	s := &system{cfg: cfg}

	provider, err := telemetry.New(telemetry.Config{
		ServiceName:    "dwellsense",
		ServiceVersion: Version,
		Enabled:        cfg.Tracing.Enabled,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	s.telemetry = provider

	var (
		definitions capability.Store
		records     usage.Store
		suggestions suggestion.Store
		audit       suggestion.AuditLog
	)
	if cfg.Storage.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool, cfg.Storage.Schema); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating postgres schema: %w", err)
		}
		s.pool = pool
		definitions = postgres.NewCapabilityStore(pool, cfg.Storage.Schema)
		records = postgres.NewUsageStore(pool, cfg.Storage.Schema)
		suggestions = postgres.NewSuggestionStore(pool, cfg.Storage.Schema)
		audit = postgres.NewAuditLog(pool, cfg.Storage.Schema)
	} else {
		logging.Warn().Msg("no postgres DSN configured, state will not survive restarts")
		definitions = memory.NewCapabilityStore()
		records = memory.NewUsageStore()
		suggestions = memory.NewSuggestionStore()
		audit = memory.NewAuditLog()
	}

	var snapshots score.SnapshotStore
	if cfg.Storage.SQLitePath != "" {
		store, err := sqlite.NewSnapshotStore(sqlite.Config{DSN: cfg.Storage.SQLitePath})
		if err != nil {
			s.close()
			return nil, fmt.Errorf("opening snapshot store: %w", err)
		}
		s.sqlite = store
		snapshots = store
	} else {
		snapshots = memory.NewSnapshotStore()
	}

	var lock batch.Lock
	if cfg.Redis.Address != "" {
		redisLock, err := runlock.NewRedisLock(runlock.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.LockKey,
		})
		if err != nil {
			s.close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		lock = redisLock
	} else {
		logging.Warn().Msg("no redis configured, run lock is process-local")
		lock = runlock.NewMemoryLock()
	}

	home := homeapi.NewClient(homeapi.ClientConfig{
		BaseURL: cfg.HomeAPI.BaseURL,
		Token:   cfg.HomeAPI.Token,
	})
	automationRuntime := runtime.NewClient(runtime.ClientConfig{
		BaseURL: cfg.Runtime.BaseURL,
		Token:   cfg.Runtime.Token,
	})
	textgen := nlg.NewClient(nlg.ClientConfig{
		BaseURL: cfg.TextGen.BaseURL,
		APIKey:  cfg.TextGen.Token,
	})

	var descriptors capability.DescriptorSource
	if cfg.Bridge.BrokerURL != "" {
		source, err := bridge.NewMQTTSource(bridge.Config{
			BrokerURL:   cfg.Bridge.BrokerURL,
			ClientID:    cfg.Bridge.ClientID,
			Username:    cfg.Bridge.Username,
			Password:    cfg.Bridge.Password,
			TopicPrefix: cfg.Bridge.TopicPrefix,
		})
		if err != nil {
			logging.Warn().
				Add(logging.ErrorField(err)).
				Msg("capability bridge unreachable, runs will use stored definitions")
		} else {
			s.bridgeMQ = source
			descriptors = source
		}
	}

	if len(cfg.Webhooks) > 0 {
		endpoints := make([]*domainnotif.Endpoint, 0, len(cfg.Webhooks))
		for _, hook := range cfg.Webhooks {
			endpoint := &domainnotif.Endpoint{
				URL:     hook.URL,
				Secret:  hook.Secret,
				Enabled: hook.Enabled,
			}
			if len(hook.Events) > 0 {
				types := make([]domainnotif.EventType, len(hook.Events))
				for i, e := range hook.Events {
					types[i] = domainnotif.EventType(e)
				}
				endpoint.Filter = domainnotif.FilterByType(types...)
			}
			endpoints = append(endpoints, endpoint)
		}
		s.notifier = notification.NewWebhookNotifier(notification.WebhookNotifierConfig{
			Endpoints:    endpoints,
			SenderConfig: notification.DefaultSenderConfig(),
		})
	}

	scorer := scoring.NewScorer(records, home, snapshots)

	batchService, err := application.NewBatchService(application.BatchConfig{
		Lock:        lock,
		Source:      home,
		Descriptors: descriptors,
		Parser:      parser.New(),
		Definitions: definitions,
		Matcher:     matching.NewEngine(home, home, definitions, records),
		Scorer:      scorer,
		Miners: []pattern.Miner{
			mining.NewTemporalMiner(),
			mining.NewCoOccurrenceMiner(),
			mining.NewRegularityMiner(),
		},
		PatternGen:    suggesting.NewPatternGenerator(textgen, suggestions),
		FeatureGen:    suggesting.NewFeatureGenerator(records, home, automationRuntime, textgen, suggestions),
		Ranker:        ranking.NewRanker(suggestions, ranking.WithTopN(cfg.Batch.TopN)),
		Notifier:      s.notifier,
		Tracer:        provider.Tracer(),
		RunBudget:     cfg.Batch.RunBudget,
		RefreshBudget: cfg.Batch.RefreshBudget,
		LockTTL:       cfg.Batch.LockTTL,
		WindowDays:    cfg.Batch.WindowDays,
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("building batch service: %w", err)
	}
	s.batch = batchService

	queryService, err := application.NewQueryService(application.QueryConfig{
		Records:     records,
		Definitions: definitions,
		Suggestions: suggestions,
		Scorer:      scorer,
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("building query service: %w", err)
	}
	s.query = queryService

	managerOpts := []lifecycle.Option{}
	if s.notifier != nil {
		managerOpts = append(managerOpts, lifecycle.WithNotifier(s.notifier))
	}
	manager, err := lifecycle.NewManager(suggestions, audit, automationRuntime, managerOpts...)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("building lifecycle manager: %w", err)
	}
	s.lifecycle = manager

	return s, nil
}
