package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"pkt.systems/pslog"
)

const shutdownTimeout = 5 * time.Second

// Listen binds a loopback listener on the preferred port, probing the next
// span-1 successive ports when it is busy. All ports busy is a hard error;
// an ephemeral port would leave the user unable to find the UI.
func Listen(preferredPort, span int) (net.Listener, int, error) {
	if span <= 0 {
		span = 1
	}
	var lastErr error
	for port := preferredPort; port < preferredPort+span; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err == nil {
			return ln, ln.Addr().(*net.TCPAddr).Port, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no free port in %d-%d: %w", preferredPort, preferredPort+span-1, lastErr)
}

// Serve runs an HTTP server on the listener and shuts it down on context
// cancellation.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	logger := pslog.Ctx(ctx)
	server := &http.Server{
		Handler:  handler,
		ErrorLog: pslog.LogLoggerWithLevel(logger, pslog.ErrorLevel),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
