package di

import (
	"context"
	"fmt"
	"os"
	"time"

	domrepo "SemaforoBot/internal/domain/repository"
	"SemaforoBot/internal/handler/api"
	internalrepo "SemaforoBot/internal/repository"
	"SemaforoBot/internal/service/binance"
	"SemaforoBot/internal/service/pricefeed"
	"SemaforoBot/internal/usecase"
	pkgch "SemaforoBot/pkg/clickhouse"
	"SemaforoBot/pkg/config"
	pkgkafka "SemaforoBot/pkg/kafka"
	applogger "SemaforoBot/pkg/logger"
	"SemaforoBot/pkg/metrics"
	"SemaforoBot/pkg/server"
	"SemaforoBot/pkg/store"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideStore creates the persistent key/value store. Redis when enabled,
// in-process memory otherwise (tests, local runs).
func ProvideStore(cfg *config.Config, l *applogger.Logger) (store.Store, error) {
	if !cfg.Redis.Enabled {
		l.Warn("redis disabled, using in-memory store; trades will not survive restarts")
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewRedisStore(
		store.WithRedisHost(cfg.Redis.Host),
		store.WithRedisPort(cfg.Redis.Port),
		store.WithRedisPassword(cfg.Redis.Password),
		store.WithRedisDB(cfg.Redis.DB),
		store.WithRedisPrefix(cfg.Redis.KeyPrefix),
		store.WithRedisOpTimeout(cfg.Redis.OpTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis store: %w", err)
	}
	return s, nil
}

// ProvideTradeStore creates the trade repository.
func ProvideTradeStore(s store.Store) domrepo.TradeStore {
	return internalrepo.NewStoreTradeRepo(s)
}

// ProvideAnalysisStore creates the assessment cache repository.
func ProvideAnalysisStore(s store.Store) domrepo.AnalysisStore {
	return internalrepo.NewStoreAnalysisRepo(s)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideHistoryStore creates the archive repository over ClickHouse, or a
// no-op when the backend is disabled.
func ProvideHistoryStore(chClient *pkgch.Client) (domrepo.HistoryStore, error) {
	if chClient == nil {
		return internalrepo.NopHistory{}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h, err := internalrepo.NewClickHouseHistory(ctx, chClient)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the event publisher over Kafka, or a no-op when
// the backend is disabled.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.Publisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideMetricSource creates the Binance metric source. The market data
// endpoints are public; keys are only read when present.
func ProvideMetricSource(cfg *config.Config, l *applogger.Logger) domrepo.MetricSource {
	return binance.NewClient(
		os.Getenv("BINANCE_API_KEY"),
		os.Getenv("BINANCE_SECRET_KEY"),
		cfg.Exchange.RequestTimeout,
		l,
	)
}

// ProvideParamsHolder seeds the risk parameter holder from config and any
// persisted override.
func ProvideParamsHolder(cfg *config.Config, analysis domrepo.AnalysisStore, l *applogger.Logger) *usecase.ParamsHolder {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return usecase.NewParamsHolder(ctx, cfg.Risk, analysis, l)
}

// ProvideAnalyzer creates the analysis orchestrator.
func ProvideAnalyzer(
	source domrepo.MetricSource,
	analysis domrepo.AnalysisStore,
	history domrepo.HistoryStore,
	publisher domrepo.Publisher,
	params *usecase.ParamsHolder,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Analyzer {
	return usecase.NewAnalyzer(source, analysis, history, publisher, params, m, l)
}

// ProvideMachine creates the trade state machine.
func ProvideMachine(
	trades domrepo.TradeStore,
	history domrepo.HistoryStore,
	publisher domrepo.Publisher,
	params *usecase.ParamsHolder,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Machine {
	return usecase.NewMachine(trades, history, publisher, params, m, l)
}

// ProvideTrader creates the trade entry orchestrator.
func ProvideTrader(analyzer *usecase.Analyzer, machine *usecase.Machine, params *usecase.ParamsHolder) *usecase.Trader {
	return usecase.NewTrader(analyzer, machine, params)
}

// ProvideWatcher creates the stop/target watcher, or nil when the price
// stream is disabled.
func ProvideWatcher(cfg *config.Config, machine *usecase.Machine, l *applogger.Logger) *pricefeed.Watcher {
	if !cfg.Exchange.WebSocket.Enabled {
		return nil
	}
	stream := pricefeed.NewStream(
		cfg.Exchange.WebSocket.URL,
		cfg.Risk.DefaultAssets,
		cfg.Exchange.WebSocket.ReconnectDelay,
		cfg.Exchange.WebSocket.PingInterval,
		l,
	)
	return pricefeed.NewWatcher(stream, machine, l)
}

// ProvideHealth builds the per-component readiness check for the status
// endpoint. Disabled backends are omitted rather than reported down.
func ProvideHealth(cfg *config.Config, s store.Store, chClient *pkgch.Client, producer *pkgkafka.Producer) api.HealthFunc {
	return func(ctx context.Context) map[string]bool {
		_, storeErr := s.Exists(ctx, "health:probe")
		components := map[string]bool{
			"store": storeErr == nil,
		}
		if chClient != nil {
			components["history"] = chClient.Health(ctx) == nil
		}
		if producer != nil {
			components["publisher"] = true
		}
		if cfg.Exchange.WebSocket.Enabled {
			components["pricefeed"] = true
		}
		return components
	}
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(
	l *applogger.Logger,
	analyzer *usecase.Analyzer,
	trader *usecase.Trader,
	machine *usecase.Machine,
	params *usecase.ParamsHolder,
	health api.HealthFunc,
) *api.SemaforoHandler {
	return api.NewSemaforoHandler(l, analyzer, trader, machine, params, health)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	s store.Store,
	handler *api.SemaforoHandler,
	analyzer *usecase.Analyzer,
	watcher *pricefeed.Watcher,
	publisher domrepo.Publisher,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, s, handler, analyzer, watcher, publisher, chClient)
}
