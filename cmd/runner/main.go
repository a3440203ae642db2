package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"stat-arb-go/config"
	"stat-arb-go/gateway"
	"stat-arb-go/infrastructure/logger"
	"stat-arb-go/internal/engine"
	"stat-arb-go/market"
	"stat-arb-go/metrics"
	"stat-arb-go/sim"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	dryRun := flag.Bool("dryRun", false, "本地模拟场内，不建立真实连接")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置文件")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *dryRun {
		cfg.Venue.DryRun = true
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	zlog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Close()

	var met *metrics.Metrics
	if cfg.MetricsAddr != "" {
		met = metrics.New(nil)
		metrics.StartMetricsServer(cfg.MetricsAddr)
		zlog.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		zlog.Info("shutdown signal received")
		cancel()
	}()

	engCfg := engine.Config{
		Decay:           cfg.Engine.Decay,
		Confidence:      cfg.Engine.Confidence,
		RefreshInterval: cfg.Engine.RefreshInterval,
		DispatchRate:    cfg.Engine.DispatchRate,
		RiskPenalty:     cfg.Engine.RiskPenalty,
	}

	if cfg.Venue.DryRun {
		runDry(engCfg, zlog, met)
		return
	}
	if err := runLive(ctx, *cfgPath, cfg, engCfg, zlog, met); err != nil && ctx.Err() == nil {
		zlog.LogError(err)
		os.Exit(1)
	}
}

// runLive 建立场内连接并运行引擎直到连接断开或收到退出信号。
func runLive(ctx context.Context, cfgPath string, cfg config.AppConfig, engCfg engine.Config, zlog *logger.Logger, met *metrics.Metrics) error {
	limiter := gateway.NewTokenBucketLimiter(float64(engCfg.DispatchRate), engCfg.DispatchRate)
	client, err := gateway.Dial(cfg.Venue.URL, limiter, zlog)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Authenticate(cfg.Venue.Account, cfg.Venue.Password); err != nil {
		return err
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, 30*time.Second)
	secs, err := client.AwaitMarkets(waitCtx)
	cancelWait()
	if err != nil {
		return err
	}
	zlog.Info("markets received", zap.Int("count", len(secs)))

	eng, err := engine.New(engCfg, secs, client, zlog, met)
	if err != nil {
		return err
	}
	client.SetHandler(eng)

	// 配置热更新：仅引擎参数块生效，无效配置保持现状
	watcher := config.Watcher{Path: cfgPath}
	go func() {
		err := watcher.Start(ctx, func(p config.EngineParams) {
			updateErr := eng.UpdateConfig(engine.Config{
				Decay:           p.Decay,
				Confidence:      p.Confidence,
				RefreshInterval: p.RefreshInterval,
				DispatchRate:    p.DispatchRate,
				RiskPenalty:     p.RiskPenalty,
			})
			if updateErr != nil {
				zlog.LogError(updateErr)
			}
		})
		if err != nil && ctx.Err() == nil {
			zlog.LogError(err)
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	return client.Run(ctx)
}

// runDry 用模拟场内回放一段随机行情，校验流水线端到端可用。
func runDry(engCfg engine.Config, zlog *logger.Logger, met *metrics.Metrics) {
	secA, err := market.NewSecurity("stock_a", "StockA", "100,0,50", 1, 99)
	if err != nil {
		zlog.LogError(err)
		return
	}
	secB, err := market.NewSecurity("stock_b", "StockB", "0,100,50", 1, 99)
	if err != nil {
		zlog.LogError(err)
		return
	}
	secs := []market.Security{secA, secB}

	venue := sim.NewVenue(true)
	eng, err := engine.New(engCfg, secs, venue, zlog, met)
	if err != nil {
		zlog.LogError(err)
		return
	}
	venue.Bind(eng)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	scenario := sim.Scenario{
		Securities: secs,
		Cash:       1000,
		Steps:      50,
		Seed:       time.Now().UnixNano(),
	}
	scenario.Run(venue)
	venue.FlushAcks()

	if score, err := eng.Score(); err == nil {
		zlog.Info("dry run complete",
			zap.Int("ordersSent", venue.SentCount()),
			zap.Float64("score", score))
	} else {
		zlog.Info("dry run complete", zap.Int("ordersSent", venue.SentCount()))
	}
}
