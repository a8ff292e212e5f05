// Package commands implements the entstore inspection CLI.
package commands

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/entstore"
	"github.com/unkn0wn-root/entstore/codec"
	"github.com/unkn0wn-root/entstore/genstore"
	zaplog "github.com/unkn0wn-root/entstore/log/zap"
	"github.com/unkn0wn-root/entstore/storage"
	rstorage "github.com/unkn0wn-root/entstore/storage/redis"
	"github.com/unkn0wn-root/entstore/value"
)

// StorageConfig is what the persistent flags select.
type StorageConfig struct {
	RedisAddr    string
	Hash         string
	GenNamespace string
}

// Backends connect the commands to persisted data.
type Backends struct {
	Storage func(ctx context.Context, cfg StorageConfig) (storage.Storage, error)
	Gens    func(ctx context.Context, cfg StorageConfig) (genstore.GenStore, error)
}

// RedisBackends reads entries from a Redis hash and generations from
// RedisGenStore keys on the same server.
func RedisBackends() Backends {
	return Backends{
		Storage: func(ctx context.Context, cfg StorageConfig) (storage.Storage, error) {
			rdb, err := dial(ctx, cfg.RedisAddr)
			if err != nil {
				return nil, err
			}
			return rstorage.New(rstorage.Config{Client: rdb, Hash: cfg.Hash, CloseClient: true})
		},
		Gens: func(ctx context.Context, cfg StorageConfig) (genstore.GenStore, error) {
			rdb, err := dial(ctx, cfg.RedisAddr)
			if err != nil {
				return nil, err
			}
			return genstore.NewRedisGenStore(rdb, cfg.GenNamespace), nil
		},
	}
}

func dial(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return rdb, nil
}

// CLI represents the command line interface for entstore.
type CLI struct {
	backends Backends
	rootCmd  *cobra.Command

	cfg      StorageConfig
	codec    string
	maxEntry int
	verbose  bool
}

// New creates a new CLI reading through backends.
func New(backends Backends) *CLI {
	c := &CLI{backends: backends}
	rootCmd := &cobra.Command{
		Use:           "entstore",
		Short:         "Inspect a persisted entity store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.cfg.RedisAddr, "redis-addr", "localhost:6379", "Redis address")
	pf.StringVar(&c.cfg.Hash, "hash", "entstore:data", "Redis hash holding the persisted entries")
	pf.StringVar(&c.cfg.GenNamespace, "gen-namespace", "entstore", "Namespace of the generation keys")
	pf.StringVar(&c.codec, "codec", "json", "Payload codec: json, cbor, msgpack or proto")
	pf.IntVar(&c.maxEntry, "max-entry", 1<<20, "Skip persisted entries larger than this many bytes (0 disables)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "Log store events to stderr")

	rootCmd.AddCommand(c.newDumpCmd())
	rootCmd.AddCommand(c.newStatsCmd())
	rootCmd.AddCommand(c.newGensCmd())
	c.rootCmd = rootCmd
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func codecByName(name string) (codec.NodeCodec, error) {
	switch name {
	case "json", "":
		return codec.JSON[value.Node]{}, nil
	case "cbor":
		cd, err := codec.NewCBOR[value.Node](true)
		if err != nil {
			return nil, err
		}
		return cd, nil
	case "msgpack":
		return codec.Msgpack[value.Node]{}, nil
	case "proto":
		return codec.Proto{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// load opens storage and hydrates a store from it. The caller closes the
// store, which closes the storage.
func (c *CLI) load(ctx context.Context) (*entstore.Store, entstore.HydrateStats, error) {
	var stats entstore.HydrateStats
	cd, err := codecByName(c.codec)
	if err != nil {
		return nil, stats, err
	}

	if c.maxEntry > 0 {
		cd = codec.Limit[value.Node]{Inner: cd, MaxDecode: c.maxEntry}
	}

	logger := zap.NewNop()
	if c.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, stats, err
		}
	}

	st, err := c.backends.Storage(ctx, c.cfg)
	if err != nil {
		return nil, stats, err
	}
	s, err := entstore.New(entstore.Options{
		Storage: st,
		Codec:   cd,
		Logger:  zaplog.New(logger),
	})
	if err != nil {
		_ = st.Close(ctx)
		return nil, stats, err
	}
	if stats, err = s.Hydrate(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, stats, err
	}
	return s, stats, nil
}
