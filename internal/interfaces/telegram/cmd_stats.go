package telegram

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/ngoclaw/chatpulse/internal/application/usecase"
	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
)

// StatsUnavailableMessage is sent when the event store cannot be read.
const StatsUnavailableMessage = "⚠️ Stats are temporarily unavailable, please try again later."

// MaxTopN caps the size argument of /stats.
const MaxTopN = 25

const helpText = `👋 **chatpulse** keeps a tally of who talks the most in this chat.

Every text message is counted. Commands are not.

/stats - leaderboard and busiest hours
/stats 10 - show the top 10 instead
/help - this message`

// StatsProvider 统计报告来源, 由 usecase.StatsReportUseCase 实现
type StatsProvider interface {
	Execute(ctx context.Context, req valueobject.StatsRequest) (*usecase.StatsReport, error)
	RenderChart(report *usecase.StatsReport) ([]byte, error)
}

// RegisterStatsCommands 注册 /stats /help /start
func (a *Adapter) RegisterStatsCommands(registry *CommandRegistry, stats StatsProvider) {
	registry.Register("stats", a.statsHandler(stats))
	registry.Register("help", helpHandler)
	registry.Alias("start", "help")
}

func helpHandler(_ context.Context, cmd *Command) (*OutgoingMessage, error) {
	return &OutgoingMessage{ChatID: cmd.ChatID, Text: helpText, Markdown: true}, nil
}

func (a *Adapter) statsHandler(stats StatsProvider) CommandHandler {
	return func(ctx context.Context, cmd *Command) (*OutgoingMessage, error) {
		req := valueobject.StatsRequest{ChatID: cmd.ChatID, ChatTitle: cmd.ChatTitle}
		if len(cmd.Args) > 0 {
			if n, err := strconv.Atoi(cmd.Args[0]); err == nil && n > 0 {
				if n > MaxTopN {
					n = MaxTopN
				}
				req.TopN = n
			}
		}

		report, err := stats.Execute(ctx, req)
		if err != nil {
			a.logger.Error("Stats request failed",
				zap.Int64("chat_id", cmd.ChatID),
				zap.Error(err),
			)
			return &OutgoingMessage{ChatID: cmd.ChatID, Text: StatsUnavailableMessage}, nil
		}

		if report.Empty() {
			return &OutgoingMessage{ChatID: cmd.ChatID, Text: report.Text}, nil
		}

		out := &OutgoingMessage{ChatID: cmd.ChatID, Text: report.Text, Markdown: true}
		png, err := stats.RenderChart(report)
		switch {
		case err == nil:
			out.Photo = png
			out.PhotoName = "stats.png"
		case errors.Is(err, usecase.ErrNoChart):
		default:
			// 图表失败时仍发送文字版
			a.logger.Warn("Chart rendering failed, sending text only",
				zap.String("request_id", report.RequestID),
				zap.Error(err),
			)
		}
		return out, nil
	}
}
