// Package lifecycle sequences startup and shutdown (C8): load config,
// open the store, migrate, construct the writer(s) and register them,
// rebuild the suggestion trie from durable state, build the optional
// credential verifier, start the retention sweeper, and bind the HTTP
// listener — then, in reverse, stop accepting connections, drain every
// writer, and close the store.
package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/3leaps/testharbor/internal/auth"
	"github.com/3leaps/testharbor/internal/config"
	"github.com/3leaps/testharbor/internal/observability"
	"github.com/3leaps/testharbor/internal/queue"
	"github.com/3leaps/testharbor/internal/registry"
	"github.com/3leaps/testharbor/internal/server"
	"github.com/3leaps/testharbor/internal/server/handlers"
	"github.com/3leaps/testharbor/internal/server/middleware"
	"github.com/3leaps/testharbor/internal/store"
	"github.com/3leaps/testharbor/internal/suggest"
	"github.com/3leaps/testharbor/internal/sweeper"
	"github.com/3leaps/testharbor/internal/validate"
	"github.com/3leaps/testharbor/internal/writer"
)

// shutdownGrace bounds how long Coordinator.Shutdown waits for writers to
// finish draining before giving up and closing the store out from under
// them anyway.
const shutdownGrace = 10 * time.Second

// The test_result writer's two-stage queue is sized from its configured
// batch size: the channel holds batch_size*8 items and the ring
// max(batch_size*16, 1024).
const (
	resultQueueChannelFactor = 8
	resultQueueRingFactor    = 16
	resultQueueMinRing       = 1024
)

// Coordinator owns every long-lived component constructed at startup and
// is responsible for tearing them down in the right order.
type Coordinator struct {
	cfg    *config.Config
	logger *zap.Logger
	pools  *store.Pools

	registry *registry.Registry
	sweeper  *sweeper.Sweeper
	metrics  *observability.Metrics

	srv      *server.Server
	listener net.Listener

	metricsSrv      *http.Server
	metricsListener net.Listener
}

// Start performs the full startup sequence and returns a Coordinator
// ready to Serve.
func Start(ctx context.Context, cfg *config.Config) (*Coordinator, error) {
	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Profile)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: build logger: %w", err)
	}

	pools, err := store.Open(ctx, store.Config{
		URL:               cfg.Database.URL,
		MaxConnections:    cfg.Database.MaxConnections,
		WAL:               cfg.Database.WAL,
		WALAutocheckpoint: cfg.Database.WALAutocheckpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle: open store: %w", err)
	}
	if err := store.Migrate(ctx, pools.Writer); err != nil {
		_ = pools.Close()
		return nil, fmt.Errorf("lifecycle: migrate: %w", err)
	}

	metrics := observability.NewMetrics()

	reg := registry.New()
	writerCfg := cfg.WriterOrDefault("test_result")
	resultQueue := queue.New[store.UpsertItem](
		writerCfg.BatchSize*resultQueueChannelFactor,
		max(writerCfg.BatchSize*resultQueueRingFactor, resultQueueMinRing))
	resultWriter := newResultWriter(resultQueue, pools.Writer, writerCfg, logger)
	resultWriter.Start()
	registry.Register[store.UpsertItem](reg, handlers.TestResultWriterName, resultWriter)

	trie, err := rebuildTrie(ctx, pools.Reader, cfg.ExecutionSuggest)
	if err != nil {
		_ = pools.Close()
		return nil, fmt.Errorf("lifecycle: rebuild suggestion trie: %w", err)
	}

	validator, err := validate.NewCreateTestResultValidator()
	if err != nil {
		_ = pools.Close()
		return nil, fmt.Errorf("lifecycle: compile schema validator: %w", err)
	}

	var verifier *auth.Verifier
	if cfg.Auth.Enabled {
		verifier, err = auth.New(auth.Algorithm(cfg.Auth.Algorithm), cfg.Auth.SecretPath)
		if err != nil {
			_ = pools.Close()
			return nil, fmt.Errorf("lifecycle: build credential verifier: %w", err)
		}
	}

	middleware.SetLogger(logger)
	handlers.InitHealthManager("testharbor")
	handlers.InitDomainHandlers(&handlers.Deps{
		Reader:         pools.Reader,
		Writer:         pools.Writer,
		Registry:       reg,
		Trie:           trie,
		Validator:      validator,
		Logger:         logger,
		SuggestEnabled: cfg.ExecutionSuggest.Enabled,
		SuggestLimit:   cfg.ExecutionSuggest.MaxCandidates,
		Now:            func() int64 { return time.Now().Unix() },
	})

	server.SuggestEnabled = cfg.ExecutionSuggest.Enabled
	server.SetVerifier(verifier)
	if cfg.RateLimit.Enabled {
		server.SetRateLimiter(middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	var sw *sweeper.Sweeper
	retention := cfg.RetentionOrDefault("test_result")
	if retention.Enabled {
		sw = sweeper.New(pools.Writer, retention.PeriodInDays, logger, metrics)
		if err := sw.Start(retention.Cron); err != nil {
			_ = pools.Close()
			return nil, fmt.Errorf("lifecycle: start retention sweeper: %w", err)
		}
	}

	srv := server.New(cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		_ = pools.Close()
		return nil, fmt.Errorf("lifecycle: bind listener: %w", err)
	}

	var metricsSrv *http.Server
	var metricsListener net.Listener
	if cfg.Metrics.Enabled {
		metricsListener, err = net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port))
		if err != nil {
			_ = listener.Close()
			_ = pools.Close()
			return nil, fmt.Errorf("lifecycle: bind metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Handler: mux}
	}

	return &Coordinator{
		cfg:             cfg,
		logger:          logger,
		pools:           pools,
		registry:        reg,
		sweeper:         sw,
		metrics:         metrics,
		srv:             srv,
		listener:        listener,
		metricsSrv:      metricsSrv,
		metricsListener: metricsListener,
	}, nil
}

// Serve blocks, running the HTTP server against the already-bound
// listener, until ctx is cancelled, at which point it calls Shutdown and
// returns.
func (c *Coordinator) Serve(ctx context.Context) error {
	httpSrv := &http.Server{Handler: c.srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(c.listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	if c.metricsSrv != nil {
		go func() {
			if err := c.metricsSrv.Serve(c.metricsListener); err != nil && err != http.ErrServerClosed {
				c.logger.Error("lifecycle: metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		c.logger.Info("lifecycle: shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		return c.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the metrics server and the sweeper, drains every
// registered writer, and closes the store pools, in that order.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if c.metricsSrv != nil {
		_ = c.metricsSrv.Shutdown(ctx)
	}
	if c.sweeper != nil {
		c.sweeper.Stop()
	}
	if err := c.registry.ShutdownAll(ctx); err != nil {
		c.logger.Error("lifecycle: writer shutdown reported errors", zap.Error(err))
	}
	return c.pools.Close()
}

func rebuildTrie(ctx context.Context, reader *sql.DB, cfg config.ExecutionSuggestConfig) (*suggest.Trie, error) {
	// When suggestions are disabled the trie is returned empty instead of
	// being rebuilt from the store; the suggest route is not registered in
	// that case, and a non-nil trie is cheaper than a nil special case
	// threaded through every handler.
	minLen, maxLen, maxCand := cfg.MinQueryLen, cfg.MaxQueryLen, cfg.MaxCandidates
	if !cfg.Enabled {
		return suggest.New(minLen, maxLen, maxCand), nil
	}

	trie := suggest.New(minLen, maxLen, maxCand)
	executions, err := store.ListExecutionsOrderedByRecency(ctx, reader)
	if err != nil {
		return nil, err
	}
	for _, exec := range executions {
		trie.Insert(exec.Name, suggest.Item{ExecutionID: strconv.FormatInt(exec.ID, 10), Name: exec.Name})
	}
	return trie, nil
}

// newResultWriter builds the batching writer for test_result upserts,
// flushing through store.BatchUpsertTestResults against the dedicated
// single-connection writer pool.
func newResultWriter(q *queue.Queue[store.UpsertItem], db *sql.DB, cfg config.WriterConfig, logger *zap.Logger) *writer.Writer[store.UpsertItem] {
	return writer.New[store.UpsertItem]("test_result", q, func(ctx context.Context, batch []store.UpsertItem) error {
		return store.BatchUpsertTestResults(ctx, db, batch)
	}, writer.Options{
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushIntervalMS) * time.Millisecond,
	}, logger)
}
