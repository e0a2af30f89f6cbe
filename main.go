package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"slots-server/common"
	"slots-server/common/logger"
	"slots-server/internal/config"
	"slots-server/internal/controller/api"
	infmysql "slots-server/internal/infra/mysql"
	infrds "slots-server/internal/infra/redis"
	"slots-server/internal/service"
	"slots-server/internal/store"
	"slots-server/internal/worker"
	"slots-server/internal/ws"
	"slots-server/routers"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

func main() {
	logger.InitLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置：Nacos 优先，本地文件兜底
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("config load failed", zap.Error(err))
	}
	config.Set(cfg)
	logger.SetLevel(cfg.Server.LogLevel)

	// 配置热更新（仅 Nacos 模式生效）
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		logger.SetLevel(newCfg.Server.LogLevel)
		logger.Info("config reloaded",
			zap.Int64("min_bet", newCfg.Game.MinBet),
			zap.Int64("max_bet", newCfg.Game.MaxBet))
	}); err != nil {
		logger.Warn("config watch unavailable", zap.Error(err))
	}

	// MySQL
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	defer db.Close()
	infmysql.UseDB(db)

	// Redis（幂等锁、结果缓存、限流）
	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// 业务装配
	st := store.NewMySQLStore(db)
	spinSvc := service.NewSpinService(st)
	acctSvc := service.NewAccountService(st)
	hub := ws.NewHub()
	api.Init(spinSvc, acctSvc, st, hub)
	routers.Register(ws.NewHandler(hub, spinSvc, acctSvc))

	// 后台任务：outbox 投递
	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(ctx, &wg)

	// 优雅退出：先停后台任务再刷日志
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
		wg.Wait()
		logger.Sync()
		os.Exit(0)
	}()

	beego.BConfig.CopyRequestBody = true
	beego.BConfig.Listen.HTTPPort = cfg.Server.Port
	logger.Info("server starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("game_type", cfg.Game.GameType),
		zap.Bool("demo_mode", cfg.Auth.DemoMode))
	beego.Run(fmt.Sprintf(":%d", cfg.Server.Port))
}
