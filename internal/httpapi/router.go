// Package httpapi exposes games and searches as a JSON API.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/game"
	"github.com/hailam/athena/internal/storage"
)

var errGameNotFound = errors.New("game not found")

type entry struct {
	game    *game.Game
	created time.Time
}

// Server holds the games created through the API. Games live in memory and,
// when a store is configured, are written through to it and reloaded on
// demand.
type Server struct {
	eng    *engine.Engine
	budget engine.Budget
	store  *storage.Store
	log    zerolog.Logger

	mu    sync.Mutex
	games map[string]*entry
}

func New(eng *engine.Engine, budget engine.Budget, store *storage.Store, log *zerolog.Logger) *Server {
	s := &Server{
		eng:    eng,
		budget: budget,
		store:  store,
		log:    zerolog.Nop(),
		games:  make(map[string]*entry),
	}
	if log != nil {
		s.log = log.With().Str("component", "httpapi").Logger()
	}
	return s
}

// Router builds the gin engine serving the API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", s.health)
	router.GET("/stats", s.stats)

	games := router.Group("/games")
	games.GET("", s.listGames)
	games.POST("", s.createGame)
	games.GET("/:id", s.getGame)
	games.DELETE("/:id", s.deleteGame)
	games.GET("/:id/moves", s.legalMoves)
	games.POST("/:id/moves", s.playMove)
	games.POST("/:id/search", s.search)

	return router
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http %s: %w", addr, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

func newID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// lookup returns the game for id, reloading it from the store when it is not
// in memory. The caller holds s.mu.
func (s *Server) lookup(id string) (*entry, error) {
	if e, ok := s.games[id]; ok {
		return e, nil
	}
	if s.store == nil {
		return nil, errGameNotFound
	}
	rec, err := s.store.LoadGame(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errGameNotFound
	}
	if err != nil {
		return nil, err
	}
	g, err := replay(s.eng, rec)
	if err != nil {
		return nil, fmt.Errorf("replay game %s: %w", id, err)
	}
	e := &entry{game: g, created: rec.CreatedAt}
	s.games[id] = e
	return e, nil
}

func replay(eng *engine.Engine, rec *storage.GameRecord) (*game.Game, error) {
	g, err := game.NewFromFEN(eng.Generator(), rec.StartFEN)
	if err != nil {
		return nil, err
	}
	for _, m := range rec.Moves {
		if _, err := g.Play(m); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// persist writes the game through to the store, if any. The caller holds s.mu.
func (s *Server) persist(id string, e *entry) error {
	if s.store == nil {
		return nil
	}
	moves := e.game.Moves()
	rec := &storage.GameRecord{
		ID:        id,
		StartFEN:  e.game.StartFEN(),
		Moves:     make([]string, len(moves)),
		FEN:       e.game.FEN(),
		Status:    e.game.Status().String(),
		Result:    e.game.Result(),
		CreatedAt: e.created,
	}
	for i, m := range moves {
		rec.Moves[i] = m.String()
	}
	return s.store.SaveGame(rec)
}
