// Package protocol implements the line-oriented command protocol spoken by
// the TCP service and the interactive CLI.
//
// Text commands get one or more reply lines; the last begins with "ok" or
// "error". A line beginning with '{' is a JSON request and gets exactly one
// JSON reply line.
package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/athena/internal/board"
	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/game"
)

// ErrUnknownCommand is returned for a command word the session does not know.
var ErrUnknownCommand = errors.New("unknown command")

// maxPerftDepth bounds "perft" so one client cannot pin a core for hours.
const maxPerftDepth = 7

// Session holds one client's game.
type Session struct {
	eng    *engine.Engine
	budget engine.Budget
	game   *game.Game
	log    zerolog.Logger

	// Finished, when set, is called each time a "move" ends the game.
	Finished func(g *game.Game)
}

// NewSession starts a session at the standard position. budget is used by
// "go" when the request names no limits.
func NewSession(eng *engine.Engine, budget engine.Budget, log *zerolog.Logger) *Session {
	s := &Session{
		eng:    eng,
		budget: budget,
		game:   game.New(eng.Generator()),
		log:    zerolog.Nop(),
	}
	if log != nil {
		s.log = *log
	}
	return s
}

// Game returns the session's current game.
func (s *Session) Game() *game.Game {
	return s.game
}

// Serve reads requests from r until EOF, "quit" or ctx is done, writing
// replies to w. Cancelling ctx stops a running search; the reader goroutine
// exits once r is closed or returns an error.
func (s *Session) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	stop := context.AfterFunc(ctx, s.eng.Stop)
	defer stop()

	lines := make(chan string)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 4096), 64*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		errc <- sc.Err()
	}()

	bw := bufio.NewWriter(w)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return <-errc
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		reply, quit := s.Handle(line)
		for _, l := range reply {
			bw.WriteString(l)
			bw.WriteByte('\n')
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// Handle executes one request line and returns the reply lines. quit is set
// when the client asked to close.
func (s *Session) Handle(line string) (reply []string, quit bool) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		return []string{s.handleJSON(line)}, false
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return []string{"error empty command"}, false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	if cmd == "quit" {
		return []string{"ok bye"}, true
	}

	out, err := s.exec(cmd, args)
	if err != nil {
		s.log.Debug().Str("cmd", cmd).Err(err).Msg("command failed")
		return append(out, "error "+err.Error()), false
	}
	return append(out, "ok"), false
}

func (s *Session) exec(cmd string, args []string) ([]string, error) {
	switch cmd {
	case "new":
		fen := ""
		if len(args) > 0 {
			if strings.ToLower(args[0]) != "fen" || len(args) == 1 {
				return nil, errors.New("usage: new [fen <FEN>]")
			}
			fen = strings.Join(args[1:], " ")
		}
		if err := s.reset(fen); err != nil {
			return nil, err
		}
		return []string{"fen " + s.game.FEN()}, nil

	case "move":
		if len(args) != 1 {
			return nil, errors.New("usage: move <move>")
		}
		m, err := s.play(args[0])
		if err != nil {
			return nil, err
		}
		return []string{"played " + m.String(), "status " + s.game.Status().String()}, nil

	case "undo":
		m, err := s.game.Undo()
		if err != nil {
			return nil, err
		}
		return []string{"undone " + m.String()}, nil

	case "moves":
		return []string{"moves " + joinMoves(s.game.LegalMoves())}, nil

	case "go":
		budget, err := parseGo(args, s.budget)
		if err != nil {
			return nil, err
		}
		res := s.search(budget)
		return []string{fmt.Sprintf("bestmove %s score %s depth %d", moveText(res.Move), engine.ScoreString(res.Score), res.Depth)}, nil

	case "fen":
		return []string{"fen " + s.game.FEN()}, nil

	case "show":
		pos := s.game.Position()
		return strings.Split(strings.Trim(pos.String(), "\n"), "\n"), nil

	case "status":
		return []string{"status " + s.game.Status().String() + " result " + s.game.Result()}, nil

	case "eval":
		pos := s.game.Position()
		return []string{"eval " + strconv.Itoa(s.eng.Evaluate(&pos))}, nil

	case "clearhash":
		s.eng.ClearHash()
		return nil, nil

	case "perft":
		depth, err := perftDepth(args)
		if err != nil {
			return nil, err
		}
		pos := s.game.Position()
		start := time.Now()
		nodes := s.eng.Generator().Perft(&pos, depth)
		return []string{fmt.Sprintf("perft %d nodes %d time %dms", depth, nodes, time.Since(start).Milliseconds())}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownCommand, cmd)
}

func (s *Session) reset(fen string) error {
	if fen == "" {
		s.game = game.New(s.eng.Generator())
		return nil
	}
	g, err := game.NewFromFEN(s.eng.Generator(), fen)
	if err != nil {
		return err
	}
	s.game = g
	return nil
}

func (s *Session) play(text string) (board.Move, error) {
	m, err := s.game.Play(text)
	if err != nil {
		return board.NoMove, err
	}
	if s.game.Status().Over() && s.Finished != nil {
		s.Finished(s.game)
	}
	return m, nil
}

func (s *Session) search(budget engine.Budget) engine.Result {
	res := s.game.BestMove(s.eng, budget)
	s.log.Debug().
		Str("fen", s.game.FEN()).
		Str("bestmove", moveText(res.Move)).
		Int("depth", res.Depth).
		Uint64("nodes", res.Nodes).
		Msg("search")
	return res
}

func parseGo(args []string, budget engine.Budget) (engine.Budget, error) {
	set := false
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			return budget, fmt.Errorf("go: %s needs a value", args[i])
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil || n < 0 {
			return budget, fmt.Errorf("go: bad %s %q", args[i], args[i+1])
		}
		if !set {
			budget, set = engine.Budget{}, true
		}
		switch strings.ToLower(args[i]) {
		case "depth":
			if n >= engine.MaxPly {
				return budget, fmt.Errorf("go: depth %d too large", n)
			}
			budget.MaxDepth = n
		case "movetime":
			budget.MaxTime = time.Duration(n) * time.Millisecond
		default:
			return budget, fmt.Errorf("go: unknown limit %q", args[i])
		}
	}
	return budget, nil
}

func perftDepth(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("usage: perft <depth>")
	}
	d, err := strconv.Atoi(args[0])
	if err != nil || d < 0 || d > maxPerftDepth {
		return 0, fmt.Errorf("perft: depth must be 0..%d", maxPerftDepth)
	}
	return d, nil
}

func moveText(m board.Move) string {
	if m == board.NoMove {
		return "(none)"
	}
	return m.String()
}

func joinMoves(moves []board.Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}

// Request is a JSON-mode command.
type Request struct {
	Cmd        string `json:"cmd"`
	Move       string `json:"move,omitempty"`
	FEN        string `json:"fen,omitempty"`
	Depth      int    `json:"depth,omitempty"`
	MoveTimeMS int    `json:"movetime_ms,omitempty"`
}

// Response is the single JSON reply to a Request.
type Response struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	FEN      string   `json:"fen,omitempty"`
	Status   string   `json:"status,omitempty"`
	Result   string   `json:"result,omitempty"`
	Move     string   `json:"move,omitempty"`
	SAN      string   `json:"san,omitempty"`
	Moves    []string `json:"moves,omitempty"`
	BestMove string   `json:"bestmove,omitempty"`
	Score    *int     `json:"score,omitempty"`
	Mate     *int     `json:"mate,omitempty"`
	Depth    int      `json:"depth,omitempty"`
	Nodes    uint64   `json:"nodes,omitempty"`
	PV       []string `json:"pv,omitempty"`
	Eval     *int     `json:"eval,omitempty"`
}

func (s *Session) handleJSON(line string) string {
	var req Request
	var resp Response
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		resp = Response{Error: "bad request: " + err.Error()}
	} else {
		resp = s.execJSON(req)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return `{"ok":false,"error":"encode response"}`
	}
	return string(data)
}

func (s *Session) execJSON(req Request) Response {
	fail := func(err error) Response {
		r := Response{Error: err.Error()}
		var ime *game.IllegalMoveError
		if errors.As(err, &ime) {
			r.Reason = ime.Reason.Error()
		}
		return r
	}

	switch strings.ToLower(req.Cmd) {
	case "new":
		if err := s.reset(req.FEN); err != nil {
			return fail(err)
		}
		return s.state()

	case "move":
		before := s.game.Position()
		m, err := s.play(req.Move)
		if err != nil {
			return fail(err)
		}
		r := s.state()
		r.Move = m.String()
		r.SAN = game.SAN(s.eng.Generator(), before, m)
		return r

	case "undo":
		m, err := s.game.Undo()
		if err != nil {
			return fail(err)
		}
		r := s.state()
		r.Move = m.String()
		return r

	case "moves":
		r := s.state()
		r.Moves = strings.Fields(joinMoves(s.game.LegalMoves()))
		return r

	case "go":
		budget := s.budget
		if req.Depth != 0 || req.MoveTimeMS != 0 {
			if req.Depth < 0 || req.Depth >= engine.MaxPly || req.MoveTimeMS < 0 {
				return fail(errors.New("go: bad limits"))
			}
			budget = engine.Budget{MaxDepth: req.Depth, MaxTime: time.Duration(req.MoveTimeMS) * time.Millisecond}
		}
		res := s.search(budget)
		r := s.state()
		r.BestMove = moveText(res.Move)
		r.Depth = res.Depth
		r.Nodes = res.Nodes
		if engine.IsMateScore(res.Score) {
			mate := engine.MateIn(res.Score)
			r.Mate = &mate
		} else {
			score := res.Score
			r.Score = &score
		}
		for _, m := range res.PV {
			r.PV = append(r.PV, m.String())
		}
		return r

	case "fen", "status", "show":
		return s.state()

	case "eval":
		pos := s.game.Position()
		ev := s.eng.Evaluate(&pos)
		r := s.state()
		r.Eval = &ev
		return r

	case "clearhash":
		s.eng.ClearHash()
		return s.state()

	case "perft":
		if req.Depth < 0 || req.Depth > maxPerftDepth {
			return fail(fmt.Errorf("perft: depth must be 0..%d", maxPerftDepth))
		}
		pos := s.game.Position()
		r := s.state()
		r.Depth = req.Depth
		r.Nodes = s.eng.Generator().Perft(&pos, req.Depth)
		return r
	}
	return fail(fmt.Errorf("%w %q", ErrUnknownCommand, req.Cmd))
}

func (s *Session) state() Response {
	return Response{
		OK:     true,
		FEN:    s.game.FEN(),
		Status: s.game.Status().String(),
		Result: s.game.Result(),
	}
}
