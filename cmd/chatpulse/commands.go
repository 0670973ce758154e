package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ngoclaw/chatpulse/internal/application"
	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
	"github.com/ngoclaw/chatpulse/internal/infrastructure/config"
	"github.com/ngoclaw/chatpulse/internal/infrastructure/logger"
	"github.com/ngoclaw/chatpulse/internal/interfaces/cli"
)

func loadConfig(flags *globalFlags) (*config.Config, error) {
	if flags.configPath != "" {
		return config.LoadFile(flags.configPath)
	}
	return config.Load()
}

// quietLogger CLI 子命令只输出错误
func quietLogger() *zap.Logger {
	return logger.Must(logger.Config{Level: "error", Format: "console", OutputPath: "stderr"})
}

// ─── serve ───

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 Telegram bot (可选 HTTP API)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags)
		},
	}
}

func runServe(flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: "stdout",
	})
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync()

	log.Info("Starting chatpulse", zap.String("version", cli.Version))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := application.NewApp(ctx, cfg, log, application.Options{
		InMemory:   flags.inMemory,
		Interfaces: true,
	})
	if err != nil {
		log.Error("Failed to initialize application", zap.Error(err))
		return err
	}

	if err := app.Start(ctx); err != nil {
		_ = app.Stop(context.Background())
		log.Error("Failed to start application", zap.Error(err))
		return err
	}
	app.WatchConfig(flags.configPath)

	if cfg.Log.Format == "console" {
		httpAddr := ""
		if cfg.HTTP.Enabled {
			httpAddr = fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		}
		store := cfg.Database.Type
		if flags.inMemory {
			store = "memory"
		}
		fmt.Fprint(os.Stderr, cli.RenderBanner(cli.BannerInfo{Bot: app.BotName(), Store: store, HTTPAddr: httpAddr}))
	}

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
		return err
	}
	return nil
}

// ─── stats ───

func newStatsCmd(flags *globalFlags) *cobra.Command {
	var (
		chatID  int64
		title   string
		topN    int
		pngPath string
		plain   bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "在终端打印某个群组的统计报告",
		Example: `  chatpulse stats --chat -1001234567890
  chatpulse stats --chat -1001234567890 --png stats.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			ctx := cmd.Context()
			app, err := application.NewApp(ctx, cfg, quietLogger(), application.Options{InMemory: flags.inMemory})
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.StatsReportUseCase().Execute(ctx, valueobject.StatsRequest{
				ChatID:    chatID,
				ChatTitle: title,
				TopN:      topN,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.NewRenderer(100, plain).RenderReport(report))

			if pngPath != "" && !report.Empty() {
				png, err := app.StatsReportUseCase().RenderChart(report)
				if err != nil {
					return fmt.Errorf("render chart: %w", err)
				}
				if err := os.WriteFile(pngPath, png, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nchart written to %s\n", pngPath)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&chatID, "chat", 0, "Telegram chat id")
	cmd.Flags().StringVar(&title, "title", "", "报告标题中的群名")
	cmd.Flags().IntVar(&topN, "top", 0, "排行榜人数 (默认取配置 stats.top_n)")
	cmd.Flags().StringVar(&pngPath, "png", "", "同时输出仪表盘图片")
	cmd.Flags().BoolVar(&plain, "plain", false, "不使用终端样式")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}

// ─── migrate ───

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或校验 messages 表结构",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			// NewApp 会执行 EnsureSchema
			app, err := application.NewApp(cmd.Context(), cfg, quietLogger(), application.Options{InMemory: flags.inMemory})
			if err != nil {
				return err
			}
			defer app.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.Database.Type)
			return nil
		},
	}
}

// ─── doctor ───

func newDoctorCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "环境诊断",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, flags)
		},
	}
}

type doctorCheck struct {
	name  string
	check func() (string, bool)
}

func runDoctor(cmd *cobra.Command, flags *globalFlags) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "◇ chatpulse doctor %s\n\n", cli.Version)

	cfg, cfgErr := loadConfig(flags)

	checks := []doctorCheck{
		{"配置文件", func() (string, bool) {
			if cfgErr != nil {
				return cfgErr.Error(), false
			}
			return "ok", true
		}},
	}
	if cfgErr == nil {
		checks = append(checks,
			doctorCheck{"Bot token", func() (string, bool) {
				if cfg.Telegram.BotToken == "" {
					return "未设置 (telegram.bot_token / CHATPULSE_TELEGRAM_BOT_TOKEN)", false
				}
				return "已设置", true
			}},
			doctorCheck{"数据库", func() (string, bool) {
				app, err := application.NewApp(cmd.Context(), cfg, quietLogger(), application.Options{InMemory: flags.inMemory})
				if err != nil {
					return err.Error(), false
				}
				defer app.Close()
				if err := app.Ping(cmd.Context()); err != nil {
					return err.Error(), false
				}
				return fmt.Sprintf("%s %s", cfg.Database.Type, cfg.Database.DSN), true
			}},
		)
	}

	allOK := true
	for _, c := range checks {
		val, ok := c.check()
		icon := "\033[92m✓\033[0m"
		if !ok {
			icon = "\033[91m✗\033[0m"
			allOK = false
		}
		fmt.Fprintf(out, "  %s %s: %s\n", icon, c.name, val)
	}

	fmt.Fprintln(out)
	if !allOK {
		return fmt.Errorf("存在问题, 请检查上方标记")
	}
	fmt.Fprintln(out, "所有检查通过 ✓")
	return nil
}

// ─── version ───

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), cli.VersionString())
		},
	}
}
