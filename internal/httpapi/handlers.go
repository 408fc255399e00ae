package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hailam/athena/internal/board"
	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/game"
)

type createRequest struct {
	FEN string `json:"fen"`
}

type moveRequest struct {
	Move string `json:"move" binding:"required"`
}

type searchRequest struct {
	Depth      int `json:"depth"`
	MoveTimeMS int `json:"movetime_ms"`
}

type gameView struct {
	ID       string   `json:"id"`
	FEN      string   `json:"fen"`
	StartFEN string   `json:"start_fen"`
	Status   string   `json:"status"`
	Result   string   `json:"result"`
	Moves    []string `json:"moves"`
	SAN      []string `json:"san"`
}

type searchView struct {
	BestMove  string   `json:"bestmove"`
	Score     int      `json:"score"`
	Mate      *int     `json:"mate,omitempty"`
	Depth     int      `json:"depth"`
	Nodes     uint64   `json:"nodes"`
	ElapsedMS int64    `json:"elapsed_ms"`
	PV        []string `json:"pv"`
}

func moveStrings(moves []board.Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

func view(id string, g *game.Game) gameView {
	return gameView{
		ID:       id,
		FEN:      g.FEN(),
		StartFEN: g.StartFEN(),
		Status:   g.Status().String(),
		Result:   g.Result(),
		Moves:    moveStrings(g.Moves()),
		SAN:      g.MovesSAN(),
	}
}

// fail maps lookup and storage errors to a response.
func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, errGameNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) stats(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no store configured"})
		return
	}
	st, err := s.store.LoadStats()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"games_finished": st.GamesFinished,
		"white_wins":     st.WhiteWins,
		"black_wins":     st.BlackWins,
		"draws":          st.Draws,
		"draw_rate":      st.DrawRate(),
	})
}

func (s *Server) listGames(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		recs, err := s.store.ListGames()
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"games": recs})
		return
	}
	out := make([]gameView, 0, len(s.games))
	for id, e := range s.games {
		out = append(out, view(id, e.game))
	}
	c.JSON(http.StatusOK, gin.H{"games": out})
}

func (s *Server) createGame(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g := game.New(s.eng.Generator())
	if req.FEN != "" {
		var err error
		if g, err = game.NewFromFEN(s.eng.Generator(), req.FEN); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	id, err := newID()
	if err != nil {
		s.fail(c, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e := &entry{game: g, created: time.Now().UTC()}
	if err := s.persist(id, e); err != nil {
		s.fail(c, err)
		return
	}
	s.games[id] = e
	s.log.Info().Str("game", id).Str("fen", g.FEN()).Msg("game created")
	c.JSON(http.StatusCreated, gin.H{"id": id, "fen": g.FEN()})
}

func (s *Server) getGame(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view(id, e.game))
}

func (s *Server) deleteGame(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(id); err != nil {
		s.fail(c, err)
		return
	}
	delete(s.games, id)
	if s.store != nil {
		if err := s.store.DeleteGame(id); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) legalMoves(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "moves": moveStrings(e.game.LegalMoves())})
}

func (s *Server) playMove(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	before := e.game.Position()
	m, err := e.game.Play(req.Move)
	if err != nil {
		body := gin.H{"error": err.Error()}
		var ime *game.IllegalMoveError
		if errors.As(err, &ime) {
			body["reason"] = ime.Reason.Error()
		}
		c.JSON(http.StatusUnprocessableEntity, body)
		return
	}
	if err := s.persist(id, e); err != nil {
		if _, uerr := e.game.Undo(); uerr != nil {
			// The in-memory game no longer matches the store; drop it so the
			// next lookup reloads the stored copy.
			delete(s.games, id)
			s.log.Error().Err(uerr).Str("game", id).Msg("roll back move")
		}
		s.fail(c, err)
		return
	}

	status := e.game.Status()
	if status.Over() {
		s.log.Info().Str("game", id).Str("result", e.game.Result()).Msg("game over")
		if s.store != nil {
			if err := s.store.RecordResult(e.game.Result()); err != nil {
				s.log.Warn().Err(err).Msg("record result")
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"move":   m.String(),
		"san":    game.SAN(s.eng.Generator(), before, m),
		"fen":    e.game.FEN(),
		"status": status.String(),
		"result": e.game.Result(),
	})
}

func (s *Server) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Depth < 0 || req.Depth >= engine.MaxPly || req.MoveTimeMS < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad search limits"})
		return
	}
	budget := s.budget
	if req.Depth != 0 || req.MoveTimeMS != 0 {
		budget = engine.Budget{MaxDepth: req.Depth, MaxTime: time.Duration(req.MoveTimeMS) * time.Millisecond}
	}

	id := c.Param("id")
	s.mu.Lock()
	e, err := s.lookup(id)
	if err != nil {
		s.mu.Unlock()
		s.fail(c, err)
		return
	}
	pos, history := e.game.Position(), e.game.History()
	s.mu.Unlock()

	res := s.eng.SearchFrom(pos, history, budget)
	out := searchView{
		Score:     res.Score,
		Depth:     res.Depth,
		Nodes:     res.Nodes,
		ElapsedMS: res.Elapsed.Milliseconds(),
		PV:        moveStrings(res.PV),
	}
	if res.Move != board.NoMove {
		out.BestMove = res.Move.String()
	}
	if engine.IsMateScore(res.Score) {
		mate := engine.MateIn(res.Score)
		out.Mate = &mate
	}
	c.JSON(http.StatusOK, out)
}
