// Command syncpump-run executes one scheduler invocation of the sync
// pipeline: staging, promotion and transmission for one or all sync
// types. It is built to run from cron; each invocation does a bounded
// amount of work and exits.
//
// Configuration comes from the environment (optionally loaded from a
// dotenv file). Admin actions (-stop, -reset, -force) act on the sync
// status instead of pumping.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shopsync/syncpump"
	"github.com/shopsync/syncpump/commerce"
	"github.com/shopsync/syncpump/mysql"
	"github.com/shopsync/syncpump/redis"
)

const exitUsage = 2

type config struct {
	DatabaseDSN string `env:"SYNCPUMP_DB_DSN,required"`
	// ShopDSN points at the commerce platform database when it lives
	// apart from the outbox; empty reuses the outbox connection.
	ShopDSN   string `env:"SYNCPUMP_SHOP_DSN"`
	RedisAddr string `env:"SYNCPUMP_REDIS_ADDR"`

	APIEndpoint string `env:"SYNCPUMP_API_ENDPOINT,required"`
	APIToken    string `env:"SYNCPUMP_API_TOKEN,required"`

	BatchLimit     int           `env:"SYNCPUMP_BATCH_LIMIT" envDefault:"25"`
	BatchRuns      int           `env:"SYNCPUMP_BATCH_RUNS" envDefault:"5"`
	WeightCeiling  int           `env:"SYNCPUMP_WEIGHT_CEILING" envDefault:"12000"`
	CooldownPeriod time.Duration `env:"SYNCPUMP_COOLDOWN_PERIOD" envDefault:"5m"`
}

func main() {
	var (
		envFile  string
		syncType string
		stop     bool
		reset    bool
		forceID  int64
	)

	flag.StringVar(&envFile, "env-file", "", "Load environment from this dotenv file")
	flag.StringVar(&syncType, "type", "", "Run a single sync type (default: all)")
	flag.BoolVar(&stop, "stop", false, "Request a stop for the sync type instead of pumping")
	flag.BoolVar(&reset, "reset", false, "Reset sync state for the sync type instead of pumping")
	flag.Int64Var(&forceID, "force", 0, "Force-sync a single record id (requires -type)")
	flag.Parse()

	if (stop || reset || forceID != 0) && syncType == "" {
		fmt.Fprintln(os.Stderr, "-stop, -reset and -force require -type")
		flag.Usage()
		os.Exit(exitUsage)
	}

	if err := run(envFile, syncType, stop, reset, forceID); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func run(envFile, syncType string, stop, reset bool, forceID int64) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := env.ParseAs[config]()
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	logger := syncpump.NewZapLogger(zapLogger)

	db, err := sql.Open("mysql", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	shopDB := db
	if cfg.ShopDSN != "" {
		shopDB, err = sql.Open("mysql", cfg.ShopDSN)
		if err != nil {
			return fmt.Errorf("open shop db: %w", err)
		}
		defer shopDB.Close()
	}

	store, err := mysql.NewStore(db)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	var cooldowns syncpump.CooldownStore = store
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer client.Close()

		cooldowns, err = redis.NewCooldownStore(client)
		if err != nil {
			return fmt.Errorf("init cooldown store: %w", err)
		}
	}

	source, err := commerce.NewSQLSource(shopDB, commerce.SQLTables{})
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}

	transport := syncpump.NewBulkClient(cfg.APIEndpoint, cfg.APIToken,
		syncpump.WithBulkLogger(logger))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	types := commerce.SyncTypes()
	if syncType != "" {
		types = []string{syncType}
	}

	for _, st := range types {
		pump, err := newPump(st, store, cooldowns, source, transport, cfg, logger)
		if err != nil {
			return err
		}

		switch {
		case stop:
			if err := pump.RequestStop(ctx); err != nil {
				return fmt.Errorf("request stop for %s: %w", st, err)
			}
			logger.Info("stop requested", "sync_type", st)
		case reset:
			if err := pump.RequestReset(ctx); err != nil {
				return fmt.Errorf("reset %s: %w", st, err)
			}
			logger.Info("sync state reset", "sync_type", st)
		case forceID != 0:
			if err := pump.ForceSyncOne(ctx, forceID); err != nil {
				if errors.Is(err, syncpump.ErrCooldownActive) {
					logger.Warn("force sync deferred by cooldown", "sync_type", st, "id", forceID)

					return nil
				}

				return fmt.Errorf("force sync %s/%d: %w", st, forceID, err)
			}
			logger.Info("record force-synced", "sync_type", st, "id", forceID)
		default:
			if err := pump.Run(ctx); err != nil {
				return fmt.Errorf("run %s: %w", st, err)
			}
		}
	}

	return nil
}

func newPump(
	syncType string,
	store *mysql.Store,
	cooldowns syncpump.CooldownStore,
	source *commerce.SQLSource,
	transport syncpump.Transport,
	cfg config,
	logger syncpump.Logger,
) (*syncpump.Pump, error) {
	selector, err := source.Selector(syncType)
	if err != nil {
		return nil, fmt.Errorf("init selector: %w", err)
	}
	serializer, err := source.SerializerFor(syncType)
	if err != nil {
		return nil, fmt.Errorf("init serializer: %w", err)
	}

	return syncpump.NewPump(syncType, store, cooldowns, selector, serializer, transport,
		syncpump.WithBatchLimit(cfg.BatchLimit),
		syncpump.WithBatchRuns(cfg.BatchRuns),
		syncpump.WithWeightCeiling(cfg.WeightCeiling),
		syncpump.WithCooldownPeriod(cfg.CooldownPeriod),
		syncpump.WithLogger(logger),
	), nil
}
