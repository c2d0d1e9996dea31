package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pegboard/mastermind/internal/chat"
	"github.com/pegboard/mastermind/internal/dependencies/clock"
	"github.com/pegboard/mastermind/internal/dependencies/random"
	"github.com/pegboard/mastermind/internal/matchmaker"
	"github.com/pegboard/mastermind/internal/registry"
	"github.com/pegboard/mastermind/internal/reliable"
	"github.com/pegboard/mastermind/internal/server"
	"github.com/pegboard/mastermind/internal/services/game"
	"github.com/pegboard/mastermind/internal/storage"
	"github.com/pegboard/mastermind/internal/storage/memory"
	redisstorage "github.com/pegboard/mastermind/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry *registry.Registry
	Sender   *reliable.Sender
	Queue    *matchmaker.Queue
	Runner   *game.Runner
	Chat     *chat.Hub

	// Handler is the fully routed HTTP handler
	Handler http.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// ReliableConfig tunes command delivery retries (optional)
	ReliableConfig reliable.Config
	// GameConfig sets the game variant (optional)
	// If zero value, defaults to game.DefaultConfig()
	GameConfig game.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	clk := clock.New()
	rnd := random.New()

	return newWithDependencies(store, clk, rnd, cfg.ReliableConfig, cfg.GameConfig, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, reliableCfg reliable.Config, gameCfg game.Config, logger *slog.Logger) *App {
	reg := registry.New(store, clk, rnd, logger)
	sender := reliable.NewSender(reliableCfg, logger)
	queue := matchmaker.New(logger)
	runner := game.NewRunner(sender, store, clk, rnd, queue, gameCfg, logger)
	chatHub := chat.NewHub(logger)

	// Every fresh identity enters matchmaking immediately
	reg.OnRegister(queue.Add)

	handler := server.NewRouter(server.RouterConfig{
		Logger:   logger,
		Registry: reg,
		Chat:     chatHub,
		Storage:  store,
	})

	return &App{
		Storage:  store,
		Clock:    clk,
		Random:   rnd,
		Registry: reg,
		Sender:   sender,
		Queue:    queue,
		Runner:   runner,
		Chat:     chatHub,
		Handler:  handler,
	}
}

// Run starts the chat hub and the matchmaking loop, blocking until ctx is
// cancelled. Each matched pair plays in its own goroutine; participants are
// forgotten once their game resolves without requeueing them.
func (a *App) Run(ctx context.Context) {
	go a.Chat.Run()
	defer a.Chat.Close()

	a.Queue.Run(ctx, func(guesser, scorer *registry.Participant) {
		_, err := a.Runner.Play(ctx, guesser, scorer)
		if err == nil {
			a.Registry.Remove(ctx, guesser.ID())
			a.Registry.Remove(ctx, scorer.ID())
			return
		}
		// Abandoned game: survivors were requeued by the runner, so only
		// forget participants that are gone for good.
		for _, p := range []*registry.Participant{guesser, scorer} {
			if !p.Active() {
				a.Registry.Remove(ctx, p.ID())
			}
		}
	})
}
