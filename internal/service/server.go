// Package service serves the line protocol over TCP, one game per
// connection.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/game"
	"github.com/hailam/athena/internal/protocol"
	"github.com/hailam/athena/internal/storage"
)

// Server accepts connections and runs a protocol.Session on each. All
// sessions share one engine, so their searches run one at a time.
type Server struct {
	eng    *engine.Engine
	budget engine.Budget
	store  *storage.Store
	log    zerolog.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// New returns a server. store may be nil; when set, finished games are
// counted in its statistics.
func New(eng *engine.Engine, budget engine.Budget, store *storage.Store, log *zerolog.Logger) *Server {
	s := &Server{
		eng:    eng,
		budget: budget,
		store:  store,
		log:    zerolog.Nop(),
		conns:  make(map[net.Conn]struct{}),
	}
	if log != nil {
		s.log = log.With().Str("component", "service").Logger()
	}
	return s
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes the
// listener and every open connection and waits for their sessions to end.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		ln.Close()
		s.closeAll()
		return nil
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			s.track(conn)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handle(ctx, conn)
			}()
		}
	})

	err := g.Wait()
	s.wg.Wait()
	s.log.Info().Msg("stopped")
	return err
}

// track registers conn for shutdown; a connection that arrives after
// closeAll is closed at once.
func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return
	}
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.untrack(conn)

	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Info().Msg("connection opened")

	sess := protocol.NewSession(s.eng, s.budget, &log)
	sess.Finished = func(g *game.Game) {
		log.Info().Str("status", g.Status().String()).Str("result", g.Result()).Msg("game over")
		if s.store == nil {
			return
		}
		if err := s.store.RecordResult(g.Result()); err != nil {
			log.Warn().Err(err).Msg("record result")
		}
	}

	if err := sess.Serve(ctx, conn, conn); err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		log.Warn().Err(err).Msg("session ended")
	}
	log.Info().Msg("connection closed")
}
