package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/pdasim"
	"github.com/aretw0/pdasim/internal/config"
	"github.com/aretw0/pdasim/internal/logging"
	"github.com/aretw0/pdasim/pkg/adapters/file"
	"github.com/aretw0/pdasim/pkg/adapters/memory"
	"github.com/aretw0/pdasim/pkg/adapters/redis"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/persistence/middleware"
	"github.com/aretw0/pdasim/pkg/ports"
)

// Backend bundles the persistence chosen by configuration.
// Locker is nil unless the store is shared between processes.
type Backend struct {
	Store  ports.RunStore
	Locker ports.DistributedLocker
	Close  func() error
}

// NewLogger builds the application logger for cfg. Quiet commands that
// print to stdout still log warnings to stderr.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// OpenBackend creates the run store selected by cfg.Store, sealing
// checkpoints when an encryption key is configured.
func OpenBackend(cfg *config.Config) (*Backend, error) {
	b, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Encryption.Key == "" {
		return b, nil
	}
	mw, err := encryptionMiddleware(cfg.Encryption)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Store = middleware.Chain(b.Store, mw)
	return b, nil
}

func encryptionMiddleware(cfg config.EncryptionConfig) (middleware.Middleware, error) {
	decode := func(name, s string) ([]byte, error) {
		key, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		return key, nil
	}
	active, err := decode("encryption key", cfg.Key)
	if err != nil {
		return nil, err
	}
	ec := middleware.EncryptionConfig{ActiveKey: active}
	for i, s := range cfg.FallbackKeys {
		key, err := decode(fmt.Sprintf("fallback key %d", i), s)
		if err != nil {
			return nil, err
		}
		ec.FallbackKeys = append(ec.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(ec)
}

func openStore(cfg *config.Config) (*Backend, error) {
	switch cfg.Store {
	case config.StoreFile:
		return &Backend{Store: file.NewStore(cfg.StoreDir), Close: func() error { return nil }}, nil
	case config.StoreRedis:
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		return &Backend{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), store.Prefix()),
			Close:  store.Close,
		}, nil
	case config.StoreMemory, "":
		return &Backend{Store: memory.NewStore(), Close: func() error { return nil }}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// OpenLoader opens the definition library named by cfg.Library, or returns
// nil when none is configured.
func OpenLoader(cfg *config.Config) (ports.DefinitionLoader, error) {
	if cfg.Library == "" {
		return nil, nil
	}
	return pdasim.OpenLibrary(cfg.Library)
}

// ResolveDefinition reads source as a definition file when it exists on
// disk, and otherwise asks loader for the definition with that ID.
func ResolveDefinition(ctx context.Context, source string, loader ports.DefinitionLoader) (*domain.Definition, error) {
	if source == "" {
		return nil, fmt.Errorf("no definition given")
	}
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		return file.ReadDefinition(source)
	}
	if loader == nil {
		return nil, fmt.Errorf("definition %s: no such file and no library configured", source)
	}
	return loader.Load(ctx, source)
}
