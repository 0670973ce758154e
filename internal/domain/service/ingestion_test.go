package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/domain/service"
	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
	domainErrors "github.com/ngoclaw/chatpulse/pkg/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want service.Verdict
	}{
		{"", service.VerdictNoText},
		{"/stats", service.VerdictCommand},
		{"/stats@chatpulse_bot", service.VerdictCommand},
		{"/", service.VerdictCommand},
		{"hello", service.VerdictAccepted},
		{" /not a command", service.VerdictAccepted},
		{"path/with/slash", service.VerdictAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, service.Classify(tt.text))
		})
	}
}

func TestIngestionFilter_CommandsNeverPersisted(t *testing.T) {
	store := newMockEventStore(time.Now())
	filter := service.NewIngestionFilter(store)

	for _, text := range []string{"/stats", "/help", "/start@bot arg", "/"} {
		ev, verdict, err := filter.Accept(context.Background(), valueobject.InboundEvent{
			AuthorID: 1, AuthorHandle: "alice", ChatID: 42, Text: text,
		})
		require.NoError(t, err)
		assert.Nil(t, ev)
		assert.Equal(t, service.VerdictCommand, verdict)
	}

	assert.Zero(t, store.count())
}

func TestIngestionFilter_NoTextRejectedSilently(t *testing.T) {
	store := newMockEventStore(time.Now())
	filter := service.NewIngestionFilter(store)

	ev, verdict, err := filter.Accept(context.Background(), valueobject.InboundEvent{AuthorID: 1, ChatID: 42})

	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, service.VerdictNoText, verdict)
	assert.Zero(t, store.count())
}

func TestIngestionFilter_AcceptsOneRowPerMessage(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	store := newMockEventStore(now)
	filter := service.NewIngestionFilter(store)

	ev, verdict, err := filter.Accept(context.Background(), valueobject.InboundEvent{
		AuthorID: 7, AuthorHandle: "alice", ChatID: 42, Text: "hi all",
	})

	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, service.VerdictAccepted, verdict)
	assert.Equal(t, 1, store.count())
	assert.Equal(t, int64(1), ev.ID())
	assert.Equal(t, int64(42), ev.ChatID())
	assert.Equal(t, int64(7), ev.UserID())
	assert.Equal(t, "alice", ev.Username())
	assert.Equal(t, now, ev.Timestamp())
}

func TestIngestionFilter_MissingHandleUsesSentinel(t *testing.T) {
	store := newMockEventStore(time.Now())
	filter := service.NewIngestionFilter(store)

	ev, _, err := filter.Accept(context.Background(), valueobject.InboundEvent{
		AuthorID: 7, ChatID: 42, Text: "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, entity.UnknownUsername, ev.Username())
}

func TestIngestionFilter_StoreFailurePropagates(t *testing.T) {
	storeErr := domainErrors.NewStoreUnavailableError("append message event", errors.New("database is locked"))
	store := newMockEventStore(time.Now())
	store.appendFn = func(*entity.MessageEvent) error { return storeErr }
	filter := service.NewIngestionFilter(store)

	ev, verdict, err := filter.Accept(context.Background(), valueobject.InboundEvent{
		AuthorID: 7, ChatID: 42, Text: "hello",
	})

	assert.Nil(t, ev)
	assert.Equal(t, service.VerdictAccepted, verdict)
	assert.Same(t, storeErr, err)
	assert.True(t, domainErrors.IsStoreUnavailable(err))
}

func TestIngestionFilter_InvalidAuthorIsInvalidInput(t *testing.T) {
	store := newMockEventStore(time.Now())
	filter := service.NewIngestionFilter(store)

	_, _, err := filter.Accept(context.Background(), valueobject.InboundEvent{ChatID: 42, Text: "hello"})

	assert.True(t, domainErrors.IsInvalidInput(err))
	assert.Zero(t, store.count())
}

func TestVerdict_String(t *testing.T) {
	assert.Equal(t, "accepted", service.VerdictAccepted.String())
	assert.Equal(t, "no_text", service.VerdictNoText.String())
	assert.Equal(t, "command", service.VerdictCommand.String())
	assert.Equal(t, "unknown", service.Verdict(99).String())
}
