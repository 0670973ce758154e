package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ngoclaw/chatpulse/internal/application/usecase"
	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
	domainErrors "github.com/ngoclaw/chatpulse/pkg/errors"
)

// StatsProvider 统计报告来源
type StatsProvider interface {
	Execute(ctx context.Context, req valueobject.StatsRequest) (*usecase.StatsReport, error)
	RenderChart(report *usecase.StatsReport) ([]byte, error)
}

// StatsHandler 统计 API
type StatsHandler struct {
	stats  StatsProvider
	logger *zap.Logger
}

func NewStatsHandler(stats StatsProvider, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: logger,
	}
}

type StatsQuery struct {
	TopN  int    `form:"top_n" binding:"omitempty,min=1,max=25"`
	Title string `form:"title" binding:"max=255"`
}

type StatsResponse struct {
	*usecase.StatsReport
	HasData bool `json:"has_data"`
}

// GetStats GET /api/v1/chats/:chat_id/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	report, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, StatsResponse{StatsReport: report, HasData: !report.Empty()})
}

// GetChart GET /api/v1/chats/:chat_id/stats/chart.png
func (h *StatsHandler) GetChart(c *gin.Context) {
	report, ok := h.load(c)
	if !ok {
		return
	}

	png, err := h.stats.RenderChart(report)
	if err != nil {
		if errors.Is(err, usecase.ErrNoChart) {
			c.JSON(http.StatusNotFound, gin.H{"error": report.Text})
			return
		}
		h.logger.Error("Failed to render chart",
			zap.String("request_id", report.RequestID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render chart"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *StatsHandler) load(c *gin.Context) (*usecase.StatsReport, bool) {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil || chatID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat_id"})
		return nil, false
	}

	var q StatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	report, err := h.stats.Execute(c.Request.Context(), valueobject.StatsRequest{
		ChatID:    chatID,
		ChatTitle: q.Title,
		TopN:      q.TopN,
	})
	if err != nil {
		h.logger.Error("Stats request failed", zap.Int64("chat_id", chatID), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": errorText(err)})
		return nil, false
	}
	c.Header("X-Request-ID", report.RequestID)
	return report, true
}

func statusFor(err error) int {
	switch {
	case domainErrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case domainErrors.IsStoreUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorText(err error) string {
	if domainErrors.IsStoreUnavailable(err) {
		return "stats are temporarily unavailable"
	}
	return "failed to build stats"
}
