package hotkey

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
)

// Handler receives one key event.
type Handler func(KeyEvent)

// Pump delivers events to handle until the channel closes (nil) or ctx is
// done (ctx.Err()). A panicking handler is logged and the next event is
// still delivered.
func Pump(ctx context.Context, log *zap.Logger, events <-chan KeyEvent, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			dispatch(log, ev, handle)
		}
	}
}

func dispatch(log *zap.Logger, ev KeyEvent, handle Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("key handler panicked",
				zap.Stringer("key", ev),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	handle(ev)
}
