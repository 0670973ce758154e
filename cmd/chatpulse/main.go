package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	inMemory   bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "chatpulse",
		Short:         "chatpulse - Telegram group activity tracker",
		Long:          "chatpulse 记录群组中每位成员的发言, 通过 /stats 生成排行榜与 24 小时活跃分布图",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "配置文件路径 (默认 ~/.chatpulse/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flags.inMemory, "memory", false, "使用内存仓储 (试运行, 退出即丢失)")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newStatsCmd(flags),
		newMigrateCmd(flags),
		newDoctorCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}
