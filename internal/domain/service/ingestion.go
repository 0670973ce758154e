package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/domain/repository"
	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
	domainErrors "github.com/ngoclaw/chatpulse/pkg/errors"
)

// Verdict is the outcome of classifying an inbound event.
type Verdict int

const (
	VerdictAccepted Verdict = iota
	VerdictNoText
	VerdictCommand
)

// String 返回用于日志与指标标签的名称
func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictNoText:
		return "no_text"
	case VerdictCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Rejected 是否为静默拒绝
func (v Verdict) Rejected() bool {
	return v != VerdictAccepted
}

// Classify decides whether a message text is trackable activity.
func Classify(text string) Verdict {
	if text == "" {
		return VerdictNoText
	}
	if IsCommand(text) {
		return VerdictCommand
	}
	return VerdictAccepted
}

// IsCommand reports whether text is a bot command.
func IsCommand(text string) bool {
	return strings.HasPrefix(text, entity.CommandPrefix)
}

// IngestionFilter 入站消息过滤器：命令与空消息静默丢弃，其余写入 EventStore
type IngestionFilter struct {
	store repository.EventStore
}

// NewIngestionFilter 创建过滤器
func NewIngestionFilter(store repository.EventStore) *IngestionFilter {
	return &IngestionFilter{store: store}
}

// Accept classifies ev and appends it when trackable.
//
// A rejected event returns a nil event, the rejecting verdict and a nil error;
// nothing is written. An accepted event is returned with the id and timestamp
// assigned by the store. Store failures are returned unchanged.
func (f *IngestionFilter) Accept(ctx context.Context, ev valueobject.InboundEvent) (*entity.MessageEvent, Verdict, error) {
	verdict := Classify(ev.Text)
	if verdict.Rejected() {
		return nil, verdict, nil
	}

	event, err := entity.NewMessageEvent(ev.AuthorID, ev.ChatID, ev.AuthorHandle)
	if err != nil {
		return nil, verdict, domainErrors.NewInvalidInputError(fmt.Sprintf("inbound event: %v", err))
	}

	if _, err := f.store.Append(ctx, event); err != nil {
		return nil, verdict, err
	}
	return event, verdict, nil
}
