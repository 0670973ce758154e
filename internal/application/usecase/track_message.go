package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/ngoclaw/chatpulse/internal/domain/repository"
	"github.com/ngoclaw/chatpulse/internal/domain/service"
	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
)

// TrackMessageUseCase records one inbound group message.
type TrackMessageUseCase struct {
	filter  *service.IngestionFilter
	metrics MetricsRecorder
	logger  *zap.Logger
}

// NewTrackMessageUseCase 创建消息记录用例, metrics 可为 nil
func NewTrackMessageUseCase(store repository.EventStore, metrics MetricsRecorder, logger *zap.Logger) *TrackMessageUseCase {
	return &TrackMessageUseCase{
		filter:  service.NewIngestionFilter(store),
		metrics: metricsOrNoop(metrics),
		logger:  logger,
	}
}

// Execute returns true when the event was appended. Commands and events
// without text are dropped silently with a nil error.
func (uc *TrackMessageUseCase) Execute(ctx context.Context, ev valueobject.InboundEvent) (bool, error) {
	event, verdict, err := uc.filter.Accept(ctx, ev)
	if err != nil {
		uc.metrics.IncIngestFailed()
		uc.logger.Error("Failed to track message",
			zap.Int64("chat_id", ev.ChatID),
			zap.Int64("user_id", ev.AuthorID),
			zap.Error(err),
		)
		return false, err
	}

	if verdict.Rejected() {
		uc.metrics.IncRejected(verdict.String())
		uc.logger.Debug("Inbound event not tracked",
			zap.Int64("chat_id", ev.ChatID),
			zap.String("reason", verdict.String()),
		)
		return false, nil
	}

	uc.metrics.IncIngested()
	uc.logger.Debug("Message tracked",
		zap.Int64("id", event.ID()),
		zap.Int64("chat_id", event.ChatID()),
		zap.Int64("user_id", event.UserID()),
	)
	return true, nil
}
