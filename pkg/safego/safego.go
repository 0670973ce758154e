package safego

import (
	"go.uber.org/zap"
)

// PanicHook is notified after a recovered panic has been logged.
type PanicHook func(name string, value any)

// Run calls fn on the current goroutine with panic recovery. A panic is logged,
// handed to hooks, and swallowed so one bad Telegram update never stops the
// polling loop. It reports whether fn panicked.
//
//	go func() {
//	    defer wg.Done()
//	    safego.Run(logger, "tg-update", func() { handle(update) }, metrics.IncPanic)
//	}()
func Run(logger *zap.Logger, name string, fn func(), hooks ...PanicHook) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			logger.Error("Goroutine panicked",
				zap.String("goroutine", name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			for _, h := range hooks {
				if h != nil {
					h(name, r)
				}
			}
		}
	}()
	fn()
	return false
}
