package safego

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRun_RecoversAndNotifiesHooks(t *testing.T) {
	var gotName string
	var gotValue any

	panicked := Run(zap.NewNop(), "tg-update", func() {
		panic("boom")
	}, func(name string, value any) {
		gotName = name
		gotValue = value
	})

	assert.True(t, panicked)
	assert.Equal(t, "tg-update", gotName)
	assert.Equal(t, "boom", gotValue)
}

func TestRun_NoPanic(t *testing.T) {
	called := false
	panicked := Run(zap.NewNop(), "noop", func() { called = true }, nil)

	assert.False(t, panicked)
	assert.True(t, called)
}

func TestRun_HookFinishesBeforeWaitGroupReleases(t *testing.T) {
	var wg sync.WaitGroup
	var hooked string

	wg.Add(1)
	go func() {
		defer wg.Done()
		Run(zap.NewNop(), "bg", func() {
			panic("background panic")
		}, func(name string, _ any) {
			hooked = name
		})
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "goroutine did not finish")
	}
	assert.Equal(t, "bg", hooked)
}
