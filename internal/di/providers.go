package di

import (
	"context"
	"fmt"
	"time"

	"EnsembleView/internal/domain/repository"
	"EnsembleView/internal/domain/service"
	"EnsembleView/internal/handler/api"
	internalrepo "EnsembleView/internal/repository"
	icache "EnsembleView/internal/service/cache"
	"EnsembleView/internal/service/ratelimit"
	"EnsembleView/internal/service/settings"
	"EnsembleView/internal/service/simstream"
	"EnsembleView/internal/services/analytics"
	"EnsembleView/internal/services/projection"
	"EnsembleView/internal/state"
	"EnsembleView/internal/usecase"
	pkgch "EnsembleView/pkg/clickhouse"
	"EnsembleView/pkg/config"
	xhttp "EnsembleView/pkg/http"
	pkgkafka "EnsembleView/pkg/kafka"
	"EnsembleView/pkg/logger"
	"EnsembleView/pkg/metrics"
	"EnsembleView/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger builds the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry
// served at /metrics.
func ProvideMetrics(cfg *config.Config) *metrics.Recorder {
	if !cfg.Metrics.Enabled {
		return metrics.New(prometheus.NewRegistry())
	}
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideKafkaProducer creates a Kafka producer when any component needs one.
// It returns nil when Kafka is unused.
func ProvideKafkaProducer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled && cfg.Stream.Source != config.SourceKafka {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.BatchSize, cfg.Kafka.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if cfg.Kafka.Enabled && cfg.Kafka.ErrorTopic != "" {
		log.AttachDigest(logger.NewErrorDigest(logger.DigestConfig{
			Interval:  cfg.Kafka.DigestInterval,
			Topic:     cfg.Kafka.ErrorTopic,
			Publisher: producer,
		}))
	}
	log.Info("kafka producer ready", logger.Strings("brokers", cfg.Kafka.Brokers))
	return producer, nil
}

// ProvideClickHouseClient connects to ClickHouse and creates the export
// table. It returns nil when the export is disabled.
func ProvideClickHouseClient(cfg *config.Config, log *logger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if err := client.EnsureSchema(ctx, internalrepo.ObservationSchema(client.Table(cfg.ClickHouse.Table))...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	log.Info("clickhouse ready", logger.String("table", client.Table(cfg.ClickHouse.Table)))
	return client, nil
}

// ProvideSimulationStream selects the inbound channel.
func ProvideSimulationStream(cfg *config.Config, producer *pkgkafka.Producer, log *logger.Logger) (repository.SimulationStream, error) {
	switch cfg.Stream.Source {
	case config.SourceKafka:
		if producer == nil {
			return nil, fmt.Errorf("kafka stream requires a producer")
		}
		readers := simstream.NewKafkaReaderFactory(
			pkgkafka.WithReaderBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithReaderTopic(cfg.Stream.FramesTopic),
			pkgkafka.WithReaderGroupID(cfg.Kafka.GroupID),
			pkgkafka.WithReaderOffset(cfg.Kafka.StartOffset),
			pkgkafka.WithReaderBufferSize(cfg.Stream.BufferSize),
		)
		return simstream.NewKafkaStream(readers, producer, cfg.Stream.ControlTopic, log.With(logger.String("component", "kafka_stream"))), nil
	default:
		return simstream.NewWSClient(cfg.Stream.URL, log.With(logger.String("component", "ws_client")),
			simstream.WithPingInterval(cfg.Stream.PingInterval),
			simstream.WithHandshakeTimeout(cfg.Stream.HandshakeTimeout),
			simstream.WithBufferSize(cfg.Stream.BufferSize),
		), nil
	}
}

func ProvideState(cfg *config.Config) *state.State {
	return state.New(
		state.WithMaxPoints(cfg.Engine.MaxPoints),
		state.WithMaxLogs(cfg.Engine.MaxLogs),
	)
}

func ProvideSession(cfg *config.Config, st *state.State, stream repository.SimulationStream, m *metrics.Recorder, log *logger.Logger) *usecase.Session {
	var opts []usecase.SessionOption
	if cfg.Stream.Source == config.SourceKafka {
		// the frames topic outlives a run; only the echoed run_id separates runs
		opts = append(opts, usecase.WithWireRunID())
	}
	return usecase.NewSession(st, stream, m, log.With(logger.String("component", "session")), cfg.Stream.ReconnectDelay, opts...)
}

func ProvideCalculator(cfg *config.Config) *analytics.Calculator {
	return analytics.NewCalculator(cfg.Engine.InitialCapital)
}

func ProvideProjector(cfg *config.Config) *projection.Projector {
	return projection.NewProjector(cfg.Engine.PaletteSize)
}

// ProvideSnapshotPublisher returns nil unless snapshot fan-out is enabled.
func ProvideSnapshotPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.SnapshotPublisher {
	if producer == nil || !cfg.Kafka.Enabled {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.SnapshotTopic)
}

// ProvideObservationSink returns nil unless the ClickHouse export is enabled.
func ProvideObservationSink(cfg *config.Config, ch *pkgch.Client) repository.ObservationSink {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseObservationSink(ch, cfg.ClickHouse.Table)
}

func ProvideSnapshotWorker(
	session *usecase.Session,
	calc *analytics.Calculator,
	pub repository.SnapshotPublisher,
	sink repository.ObservationSink,
	m *metrics.Recorder,
	log *logger.Logger,
) *usecase.SnapshotWorker {
	return usecase.NewSnapshotWorker(session, calc, pub, sink, m, log.With(logger.String("component", "snapshot_worker")))
}

// ProvideProjectionCache returns the configured projection cache, or nil.
func ProvideProjectionCache(cfg *config.Config, log *logger.Logger) (icache.BytesCache, error) {
	switch cfg.Cache.Type {
	case "redis":
		rc := icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		log.Info("projection cache ready", logger.String("type", "redis"), logger.String("addr", cfg.Cache.Redis.Addr))
		return rc, nil
	case "memory":
		return icache.NewTTLCache(cfg.Cache.MaxEntries), nil
	default:
		return nil, nil
	}
}

func ProvideSettingsStore(cfg *config.Config) service.SettingsStore {
	return settings.NewHTTPStore(cfg.Settings.URL, xhttp.NewClient(xhttp.WithTimeout(cfg.Settings.Timeout)))
}

func ProvideSimulationHandler(
	cfg *config.Config,
	log *logger.Logger,
	session *usecase.Session,
	calc *analytics.Calculator,
	proj *projection.Projector,
	store service.SettingsStore,
	cache icache.BytesCache,
	sink repository.ObservationSink,
) *api.SimulationHandler {
	limiter := ratelimit.New(cfg.Server.RunRateLimit.Capacity, cfg.Server.RunRateLimit.Refill)
	h := api.NewSimulationHandler(log.With(logger.String("component", "api")), session, calc, proj, store, limiter)
	if cache != nil {
		h.SetCache(cache, cfg.Cache.TTL)
		if p, ok := cache.(interface{ Ping(context.Context) error }); ok {
			h.AddHealthCheck("cache", p.Ping)
		}
	}
	if sink != nil {
		h.AddHealthCheck("observation_export", sink.Health)
	}
	return h
}

func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, h *api.SimulationHandler) *xhttp.Server {
	return xhttp.NewServer(log, []xhttp.Handler{h},
		xhttp.WithAddress(cfg.Server.Host, cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
	)
}

// ProvideApp creates the application and hands it every client to close.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	session *usecase.Session,
	worker *usecase.SnapshotWorker,
	srv *xhttp.Server,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	cache icache.BytesCache,
) *server.App {
	var res []server.Resource
	if producer != nil {
		res = append(res, server.Resource{Name: "kafka producer", Closer: producer})
	}
	if ch != nil {
		res = append(res, server.Resource{Name: "clickhouse", Closer: ch})
	}
	if rc, ok := cache.(*icache.RedisCache); ok {
		res = append(res, server.Resource{Name: "redis", Closer: rc})
	}
	return server.New(cfg, log, session, worker, srv, res...)
}
