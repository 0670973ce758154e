package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/domain/repository"
	"github.com/ngoclaw/chatpulse/internal/domain/service"
	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
)

// ErrNoChart is returned by RenderChart for a report without data.
var ErrNoChart = errors.New("report has no chart")

// ChartRenderer 将图表数据渲染为 PNG
type ChartRenderer interface {
	Render(series valueobject.ChartSeries) ([]byte, error)
}

// StatsReport 一次 /stats 请求的结果
type StatsReport struct {
	RequestID   string                    `json:"request_id"`
	ChatID      int64                     `json:"chat_id"`
	Title       string                    `json:"title"`
	Text        string                    `json:"text"`
	Leaderboard []entity.LeaderboardEntry `json:"leaderboard"`
	Hourly      []int64                   `json:"hourly"`
	BusiestHour *int                      `json:"busiest_hour,omitempty"` // UTC, nil without history
	Chart       *valueobject.ChartSeries  `json:"chart,omitempty"`
}

// Empty reports whether the chat had no tracked history.
func (r *StatsReport) Empty() bool {
	return r.Chart == nil
}

// StatsOptions 统计用例参数
type StatsOptions struct {
	TopN    int
	Timeout time.Duration
}

// StatsReportUseCase builds the leaderboard text and chart data for one chat.
type StatsReportUseCase struct {
	aggregator *service.Aggregator
	renderer   ChartRenderer
	metrics    MetricsRecorder
	logger     *zap.Logger
	opts       StatsOptions
}

// NewStatsReportUseCase 创建统计用例, renderer 与 metrics 可为 nil
func NewStatsReportUseCase(
	store repository.EventStore,
	renderer ChartRenderer,
	metrics MetricsRecorder,
	logger *zap.Logger,
	opts StatsOptions,
) *StatsReportUseCase {
	if opts.TopN <= 0 {
		opts.TopN = service.DefaultTopN
	}
	return &StatsReportUseCase{
		aggregator: service.NewAggregator(store),
		renderer:   renderer,
		metrics:    metricsOrNoop(metrics),
		logger:     logger,
		opts:       opts,
	}
}

// Execute reads the chat's leaderboard and hourly profile and composes the
// report. Store failures are returned unchanged and nothing is composed.
func (uc *StatsReportUseCase) Execute(ctx context.Context, req valueobject.StatsRequest) (*StatsReport, error) {
	start := time.Now()
	requestID := uuid.NewString()
	log := uc.logger.With(
		zap.String("request_id", requestID),
		zap.Int64("chat_id", req.ChatID),
	)

	if uc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.opts.Timeout)
		defer cancel()
	}

	topN := req.TopN
	if topN <= 0 {
		topN = uc.opts.TopN
	}

	board, err := uc.aggregator.BuildLeaderboard(ctx, req.ChatID, topN)
	if err != nil {
		uc.metrics.ObserveStats("error", time.Since(start))
		log.Error("Failed to build leaderboard", zap.Error(err))
		return nil, err
	}

	report := &StatsReport{
		RequestID:   requestID,
		ChatID:      req.ChatID,
		Title:       req.ChatTitle,
		Text:        service.ComposeLeaderboardText(req.ChatTitle, board),
		Leaderboard: board,
		Hourly:      make([]int64, entity.HoursPerDay),
	}

	if len(board) == 0 {
		uc.metrics.ObserveStats("empty", time.Since(start))
		log.Info("Stats requested for chat without history")
		return report, nil
	}

	profile, err := uc.aggregator.BuildHourlyProfile(ctx, req.ChatID)
	if err != nil {
		uc.metrics.ObserveStats("error", time.Since(start))
		log.Error("Failed to build hourly profile", zap.Error(err))
		return nil, err
	}

	series := service.ComposeChartSeries(board, profile)
	report.Hourly = profile.Slice()
	report.Chart = &series
	if hour, ok := profile.Busiest(); ok {
		report.BusiestHour = &hour
	}

	uc.metrics.ObserveStats("ok", time.Since(start))
	log.Info("Stats report composed",
		zap.Int("contributors", len(board)),
		zap.Int64("messages", profile.Total()),
		zap.Intp("busiest_hour", report.BusiestHour),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// RenderChart renders the report's dashboard image. Call it after Execute
// returns so no store read is in flight during rendering.
func (uc *StatsReportUseCase) RenderChart(report *StatsReport) ([]byte, error) {
	if report == nil || report.Chart == nil || uc.renderer == nil {
		return nil, ErrNoChart
	}
	return uc.renderer.Render(*report.Chart)
}
