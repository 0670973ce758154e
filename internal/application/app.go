package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ngoclaw/chatpulse/internal/application/usecase"
	"github.com/ngoclaw/chatpulse/internal/domain/repository"
	"github.com/ngoclaw/chatpulse/internal/infrastructure/chart"
	"github.com/ngoclaw/chatpulse/internal/infrastructure/config"
	"github.com/ngoclaw/chatpulse/internal/infrastructure/monitoring"
	"github.com/ngoclaw/chatpulse/internal/infrastructure/persistence"
	httpServer "github.com/ngoclaw/chatpulse/internal/interfaces/http"
	"github.com/ngoclaw/chatpulse/internal/interfaces/telegram"
)

// EventStore 仓储 + 健康检查
type EventStore interface {
	repository.EventStore
	Ping(ctx context.Context) error
}

// Options 启动选项
type Options struct {
	// InMemory 使用内存仓储 (试运行, 重启即丢失)
	InMemory bool
	// Interfaces 是否初始化 Telegram / HTTP
	Interfaces bool
}

// App 应用程序
type App struct {
	// 配置
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	// 仓储层
	store EventStore

	// 应用服务
	trackMessage *usecase.TrackMessageUseCase
	statsReport  *usecase.StatsReportUseCase

	// 基础设施
	metrics  *monitoring.Metrics
	renderer *chart.Renderer

	// 接口层
	telegramAdapter *telegram.Adapter
	httpServer      *httpServer.Server
}

// NewApp 创建应用程序（依赖注入容器）
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	// Bootstrap: ensure ~/.chatpulse/ exists with default files on first run
	if err := config.Bootstrap(cfg, logger); err != nil {
		logger.Warn("Bootstrap failed (non-fatal)", zap.Error(err))
	}

	app := &App{
		config:  cfg,
		logger:  logger,
		metrics: monitoring.NewMetrics(),
	}

	if err := app.initRepositories(ctx, opts.InMemory); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	app.initApplicationServices()

	if opts.Interfaces {
		if err := app.initInterfaces(); err != nil {
			app.closeDB()
			return nil, fmt.Errorf("failed to init interfaces: %w", err)
		}
	}

	return app, nil
}

// initRepositories 初始化仓储层并确保表结构存在
func (app *App) initRepositories(ctx context.Context, inMemory bool) error {
	if inMemory {
		app.logger.Warn("Using in-memory event store, history is lost on exit")
		app.store = persistence.NewMemoryEventStore()
		return nil
	}

	db, err := persistence.NewDBConnection(&app.config.Database, app.logger)
	if err != nil {
		return err
	}
	app.db = db

	store := persistence.NewGormEventStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		app.closeDB()
		return err
	}
	app.store = store
	return nil
}

// initApplicationServices 初始化应用服务
func (app *App) initApplicationServices() {
	app.renderer = chart.NewRenderer(app.config.Stats.ChartWidth, app.config.Stats.ChartHeight)
	app.trackMessage = usecase.NewTrackMessageUseCase(app.store, app.metrics, app.logger)
	app.statsReport = usecase.NewStatsReportUseCase(app.store, app.renderer, app.metrics, app.logger, usecase.StatsOptions{
		TopN:    app.config.Stats.TopN,
		Timeout: app.config.Stats.RequestTimeout,
	})
}

// initInterfaces 初始化接口层
func (app *App) initInterfaces() error {
	if app.config.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is not set (CHATPULSE_TELEGRAM_BOT_TOKEN)")
	}

	tgCfg := &telegram.Config{
		BotToken:       app.config.Telegram.BotToken,
		Debug:          app.config.Telegram.Debug,
		PollTimeout:    app.config.Telegram.PollTimeout,
		SkipPending:    app.config.Telegram.SkipPending,
		GroupPolicy:    app.config.Telegram.GroupPolicy,
		GroupAllowFrom: app.config.Telegram.GroupAllowFrom,
	}
	adapter, err := telegram.NewAdapter(tgCfg, app.logger.Named("telegram"))
	if err != nil {
		return err
	}
	registry := telegram.NewCommandRegistry()
	adapter.RegisterStatsCommands(registry, app.statsReport)
	adapter.SetCommandRegistry(registry)
	adapter.SetMessageTracker(app.trackMessage)
	adapter.SetPanicHooks(app.metrics.IncPanic)
	app.telegramAdapter = adapter

	if app.config.HTTP.Enabled {
		app.httpServer = httpServer.NewServer(httpServer.Config{
			Host: app.config.HTTP.Host,
			Port: app.config.HTTP.Port,
			Mode: app.config.HTTP.Mode,
		}, app.statsReport, app.store, app.metrics.Handler(), app.logger.Named("http"))
	}
	return nil
}

// Start 启动应用
func (app *App) Start(ctx context.Context) error {
	app.logger.Info("Starting application")

	// 启动HTTP服务器
	if app.httpServer != nil {
		if err := app.httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	// 启动Telegram适配器
	if app.telegramAdapter != nil {
		if err := app.telegramAdapter.Start(ctx); err != nil {
			return fmt.Errorf("failed to start telegram adapter: %w", err)
		}
	}

	app.logger.Info("Application started successfully")
	return nil
}

// WatchConfig 配置文件变更时热更新群组策略; 其余字段需重启生效
func (app *App) WatchConfig(path string) {
	err := config.Watch(path, func(cfg *config.Config) {
		if app.telegramAdapter != nil {
			app.telegramAdapter.UpdateGroupPolicy(cfg.Telegram.GroupPolicy, cfg.Telegram.GroupAllowFrom)
		}
	}, func(err error) {
		app.logger.Warn("Ignoring invalid config change", zap.Error(err))
	})
	if err != nil {
		app.logger.Debug("Config hot reload disabled", zap.Error(err))
	}
}

// Stop 停止应用: 先停止接收, 等待进行中的写入完成, 再关闭数据库
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("Stopping application")

	// 停止Telegram适配器
	if app.telegramAdapter != nil {
		app.telegramAdapter.Stop()
	}

	// 停止HTTP服务器
	if app.httpServer != nil {
		if err := app.httpServer.Stop(ctx); err != nil {
			app.logger.Error("Failed to stop HTTP server", zap.Error(err))
		}
	}

	app.closeDB()

	app.logger.Info("Application stopped successfully")
	return nil
}

// Close 释放资源 (CLI 子命令使用)
func (app *App) Close() {
	app.closeDB()
}

func (app *App) closeDB() {
	if app.db == nil {
		return
	}
	if err := persistence.CloseDB(app.db); err != nil {
		app.logger.Error("Failed to close database connection", zap.Error(err))
	}
	app.db = nil
}

// Ping 检查仓储是否可用
func (app *App) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return app.store.Ping(ctx)
}

// TrackMessageUseCase 返回消息记录用例
func (app *App) TrackMessageUseCase() *usecase.TrackMessageUseCase {
	return app.trackMessage
}

// StatsReportUseCase 返回统计用例
func (app *App) StatsReportUseCase() *usecase.StatsReportUseCase {
	return app.statsReport
}

// Store 返回事件仓储
func (app *App) Store() EventStore {
	return app.store
}

// Metrics 返回指标
func (app *App) Metrics() *monitoring.Metrics {
	return app.metrics
}

// Logger 返回日志
func (app *App) Logger() *zap.Logger {
	return app.logger
}

// AppConfig 返回配置
func (app *App) AppConfig() *config.Config {
	return app.config
}

// BotName 返回 bot 用户名, 未启用 Telegram 时为空
func (app *App) BotName() string {
	if app.telegramAdapter == nil {
		return ""
	}
	return app.telegramAdapter.BotName()
}
