package shutdown

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_ListenForShutdown(t *testing.T) {
	t.Run("A signal cancels the context", func(t *testing.T) {
		signals := make(chan os.Signal, 1)
		ctx, stop := listenForShutdown(context.Background(), signals, zap.NewNop())
		defer stop()

		signals <- syscall.SIGINT

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context was not cancelled")
		}
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})
	t.Run("Stop cancels without a signal", func(t *testing.T) {
		ctx, stop := listenForShutdown(context.Background(), make(chan os.Signal, 1), zap.NewNop())
		stop()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})
}
