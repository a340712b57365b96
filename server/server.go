// Package server runs the HTTP endpoints of receivers and senders with the
// lifecycle expected by abstraction.AbstractChannelComponent.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
)

const shutdownTimeout = 5 * time.Second

// Run serves handler on addr until done is closed or the listener fails. The
// returned channel yields the listener error, if any, and is then closed.
func Run(addr string, handler http.Handler, done <-chan struct{}) <-chan error {
	retCh := make(chan error)

	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.Shutdown(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		err := s.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		defer close(retCh)
		select {
		case err, ok := <-errCh:
			shutdownFunc()
			if ok {
				retCh <- err
			}
			return
		case <-done:
			shutdownFunc()
			return
		}
	}()

	return retCh
}

// CORS allows every origin when allowedOrigins is empty.
func CORS(allowedOrigins []string) *cors.Cors {
	if len(allowedOrigins) == 0 {
		return cors.AllowAll()
	}
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
}
