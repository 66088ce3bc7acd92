// Package enzyflow is the public entry point for simulations, the sequence
// oracle and the design loop. The CLI and the HTTP server are thin layers
// over Client.
package enzyflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"enzyflow/internal/cache"
	"enzyflow/internal/config"
	"enzyflow/internal/embed"
	"enzyflow/internal/kinetics"
	"enzyflow/internal/logging"
	"enzyflow/internal/metrics"
	"enzyflow/internal/oracle"
	"enzyflow/internal/storage"
	"enzyflow/internal/surrogate"
)

var (
	ErrRunNotFound = errors.New("design run not found")
	// ErrInvalidRequest marks errors caused by the caller's input.
	ErrInvalidRequest = errors.New("invalid request")
)

type Options struct {
	Config config.Config
	Logger *zap.Logger
	// Registry receives the client's collectors. Nil disables metrics.
	Registry *prometheus.Registry
	// Store overrides the store built from Config.Store.
	Store storage.Store
	// Embedder defaults to the composition embedder.
	Embedder embed.Embedder
	// ArtifactsDir receives per-run design artifacts when set.
	ArtifactsDir string
}

type Client struct {
	cfg       config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	store     storage.Store
	ownsStore bool
	cache     cache.Cache
	simulator *kinetics.Simulator
	oracle    *oracle.Oracle
	embedder  embed.Embedder

	artifactsDir string

	mu    sync.RWMutex
	model *surrogate.Model
}

// New wires the client from opts. A configured surrogate model path that
// exists is loaded; a missing file leaves the client without a surrogate.
func New(ctx context.Context, opts Options) (*Client, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrNop(opts.Logger)

	c := &Client{
		cfg:          cfg,
		logger:       logger,
		store:        opts.Store,
		embedder:     opts.Embedder,
		artifactsDir: opts.ArtifactsDir,
	}
	if opts.Registry != nil {
		c.metrics = metrics.New(opts.Registry)
	}
	if c.embedder == nil {
		c.embedder = embed.CompositionEmbedder{}
	}

	if c.store == nil {
		store, err := storage.Open(ctx, cfg.Store.Kind, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Store.Kind, err)
		}
		c.store = store
		c.ownsStore = true
	} else if err := c.store.Init(ctx); err != nil {
		return nil, err
	}

	switch cfg.Cache.Kind {
	case "memory":
		c.cache = cache.NewMemory()
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
		}, logger)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.cache = r
	}

	c.simulator = kinetics.NewSimulator(kinetics.IntegratorOptions{
		Method:   kinetics.Method(cfg.Simulation.Method),
		RelTol:   cfg.Simulation.RelTol,
		AbsTol:   cfg.Simulation.AbsTol,
		MaxSteps: cfg.Simulation.MaxSteps,
	}, logger)
	c.oracle = oracle.New(logger)
	if c.metrics != nil {
		c.simulator.Observer = c.metrics
		c.oracle.Observer = c.metrics
	}

	if path := cfg.Surrogate.ModelPath; path != "" {
		if err := c.LoadSurrogate(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) Close() error {
	var errs []error
	if closer, ok := c.cache.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	if c.ownsStore {
		errs = append(errs, storage.CloseIfSupported(c.store))
	}
	return errors.Join(errs...)
}

func (c *Client) Config() config.Config { return c.cfg }

func (c *Client) Logger() *zap.Logger { return c.logger }

// Metrics may be nil.
func (c *Client) Metrics() *metrics.Metrics { return c.metrics }

func (c *Client) Store() storage.Store { return c.store }

func (c *Client) LoadSurrogate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	m, err := surrogate.Load(f)
	if err != nil {
		return fmt.Errorf("load surrogate %s: %w", path, err)
	}
	c.SetSurrogate(m)
	c.logger.Info("surrogate loaded", zap.String("path", path), zap.Int("features", m.Schema.Len()))
	return nil
}

func (c *Client) SetSurrogate(m *surrogate.Model) {
	c.mu.Lock()
	c.model = m
	c.mu.Unlock()
}

func (c *Client) Surrogate() *surrogate.Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}
