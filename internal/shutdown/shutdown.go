package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGTERM, syscall.SIGINT)

	return gracefulShutdown
}

// ContextWithShutdown returns a context that is cancelled on the first SIGTERM or SIGINT.
// The returned stop func releases the signal handler.
func ContextWithShutdown(parent context.Context, l *zap.Logger) (context.Context, func()) {
	return listenForShutdown(parent, CreateGracefulShutdownChannel(), l)
}

func listenForShutdown(parent context.Context, signalChan chan os.Signal, l *zap.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case sig := <-signalChan:
			l.Sugar().Infow("Caught signal, stopping", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(signalChan)
		cancel()
	}
}
