package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
)

// Local is a relay served on an ephemeral loopback port.
type Local struct {
	URL string

	server *http.Server
	stop   func() bool
	once   sync.Once
	err    error
	done   chan error
}

// Listen serves handler at Path on 127.0.0.1 with a random port until ctx is done or Close is called.
func Listen(ctx context.Context, handler http.Handler) (*Local, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen for local relay: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(Path, handler)

	l := &Local{
		URL:    "http://" + ln.Addr().String() + Path,
		server: &http.Server{Handler: mux},
		done:   make(chan error, 1),
	}

	go func() {
		err := l.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		l.done <- err
	}()

	l.stop = context.AfterFunc(ctx, func() {
		_ = l.server.Close()
	})

	return l, nil
}

// Close stops the local relay and waits for it to exit. It is safe to call more than once.
func (l *Local) Close() error {
	l.once.Do(func() {
		l.stop()
		if err := l.server.Close(); err != nil {
			l.err = err
			return
		}
		l.err = <-l.done
	})
	return l.err
}
