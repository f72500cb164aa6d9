package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/palemoky/stone-rolling/internal/config"
	"github.com/palemoky/stone-rolling/internal/game/coordinator"
	"github.com/palemoky/stone-rolling/internal/game/room"
	"github.com/palemoky/stone-rolling/internal/ledger"
	"github.com/palemoky/stone-rolling/internal/logger"
	"github.com/palemoky/stone-rolling/internal/server"
	"github.com/palemoky/stone-rolling/internal/server/registry"
	"github.com/palemoky/stone-rolling/internal/stats"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置文件失败，使用默认配置: %v\n", err)
		cfg = config.Default()
	}

	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := run(cfg); err != nil {
		logger.L().Error().Err(err).Msg("服务器异常退出")
		logger.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Ledger.Driver == "redis" || cfg.Game.PersistRooms || cfg.Game.RecordStats {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis 连接失败: %w", err)
		}
	}

	base, closeLedger, err := openLedger(cfg, rdb)
	if err != nil {
		return err
	}
	defer closeLedger()
	wallet := ledger.NewRetryLedger(base, cfg.Ledger.RetryAttempts, cfg.Ledger.RetryBackoff())

	var persister room.Persister
	if cfg.Game.PersistRooms {
		persister = room.NewRedisPersister(rdb, 0)
	}
	store := room.NewStore(persister)
	restored, err := store.Restore(ctx)
	if err != nil {
		logger.L().Warn().Err(err).Msg("⚠️ 部分房间恢复失败")
	}

	reg := registry.New()
	fanout := registry.NewFanout(reg)
	coordDeps := coordinator.Deps{
		Store:     store,
		Ledger:    wallet,
		Publisher: fanout,
	}
	srvDeps := server.ServerDeps{Registry: reg, Fanout: fanout}
	if cfg.Game.RecordStats {
		recorder := stats.NewRecorder(rdb)
		coordDeps.Results = recorder
		srvDeps.Stats = recorder
	}
	coord := coordinator.New(coordinator.ConfigFrom(cfg.Game), coordDeps)
	srvDeps.Coordinator = coord
	pending := coord.RecoverPending()

	logger.L().Info().
		Str("ledger", cfg.Ledger.Driver).
		Bool("persist_rooms", cfg.Game.PersistRooms).
		Bool("record_stats", cfg.Game.RecordStats).
		Int("restored_rooms", restored).
		Int("pending_settlements", pending).
		Str("log_file", logger.GetLogPath()).
		Msg("🎲 石头对战服务器启动中...")

	srv := server.NewServer(cfg, srvDeps)

	// 协调器的后台循环在服务器完全关闭后才停止，优雅关闭期间仍会重试结算
	coordCtx, stopCoord := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(coordCtx)
	g.Go(func() error {
		return coord.Run(gctx)
	})
	g.Go(func() error {
		defer stopCoord()
		return srv.Run(ctx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.L().Info().Strs("pending_settlements", coord.PendingSettlements()).Msg("👋 服务器已退出")
	return err
}

// openLedger 按配置选择钱包实现
func openLedger(cfg *config.Config, rdb *redis.Client) (ledger.Ledger, func(), error) {
	switch cfg.Ledger.Driver {
	case "redis":
		return ledger.NewRedisLedger(rdb, cfg.Ledger.InitialBalance), func() {}, nil
	case "sqlite":
		l, err := ledger.OpenSQLite(cfg.Ledger.SQLitePath, cfg.Ledger.InitialBalance)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return l, func() { _ = l.Close() }, nil
	default:
		logger.L().Warn().Msg("⚠️ 使用内存钱包，重启后余额丢失")
		return ledger.NewMemoryLedger(cfg.Ledger.InitialBalance), func() {}, nil
	}
}
