package telemetry

import (
	"context"
	"log/slog"
	"time"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the servers stop before shutting down OTel providers,
// so in-flight async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with a short timeout so the request is not blocked.
// emitter and event may be nil; EmitAsync then returns without starting a goroutine.
// The goroutine does not inherit request cancellation.
func EmitAsync(log *slog.Logger, emitter EventEmitter, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil && log != nil {
			log.Warn("telemetry: async emit failed", slog.String("event", event.Type), slog.Any("error", err))
		}
	}()
}
