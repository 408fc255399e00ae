// Command athena-cli plays against the engine on the terminal using the line
// protocol, or runs one-shot perft, divide and search jobs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"github.com/hailam/athena/internal/app"
	"github.com/hailam/athena/internal/board"
	"github.com/hailam/athena/internal/config"
	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/game"
	"github.com/hailam/athena/internal/magic"
	"github.com/hailam/athena/internal/protocol"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	fs := flag.NewFlagSet("athena-cli", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	fen := fs.String("fen", "", "start position (default: standard)")
	perft := fs.Int("perft", 0, "count leaf nodes to this depth and exit")
	divide := fs.Int("divide", 0, "print per-move perft counts to this depth and exit")
	search := fs.Bool("go", false, "search the start position once and exit")
	cpuprofile := fs.String("cpuprofile", "", "write cpu profile to file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "could not create CPU profile:", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintln(os.Stderr, "could not start CPU profile:", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	a, err := app.Setup(cfg, app.Options{})
	if err != nil {
		if errors.Is(err, magic.ErrMagicGeneration) {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			return 3
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.Close()

	g := game.New(a.Gen)
	if *fen != "" {
		if g, err = game.NewFromFEN(a.Gen, *fen); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}
	pos := g.Position()

	switch {
	case *divide > 0:
		start := time.Now()
		var total uint64
		for _, e := range a.Gen.Divide(&pos, *divide) {
			fmt.Printf("%s: %d\n", e.Move, e.Nodes)
			total += e.Nodes
		}
		fmt.Printf("\nNodes searched: %d (%v)\n", total, time.Since(start).Round(time.Millisecond))
		return 0

	case *perft > 0:
		for d := 1; d <= *perft; d++ {
			start := time.Now()
			n := a.Gen.Perft(&pos, d)
			fmt.Printf("perft(%d) = %d (%v)\n", d, n, time.Since(start).Round(time.Millisecond))
		}
		return 0

	case *search:
		a.Engine.OnInfo = func(info engine.SearchInfo) {
			fmt.Printf("info depth %d score %s nodes %d time %d hashfull %d pv %s\n",
				info.Depth, engine.ScoreString(info.Score), info.Nodes,
				info.Elapsed.Milliseconds(), info.HashFull, pvLine(info.PV))
		}
		res := g.BestMove(a.Engine, cfg.Budget())
		fmt.Printf("bestmove %s\n", res.Move)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess := protocol.NewSession(a.Engine, cfg.Budget(), &a.Log)
	if *fen != "" {
		sess.Handle("new fen " + *fen)
	}
	sess.Finished = func(g *game.Game) {
		fmt.Printf("game over: %s (%s)\n", g.Status(), g.Result())
		if a.Store != nil {
			if err := a.Store.RecordResult(g.Result()); err != nil {
				a.Log.Warn().Err(err).Msg("record result")
			}
		}
	}
	fmt.Println("athena ready; type commands (new, move, undo, moves, go, fen, show, status, eval, perft, clearhash, quit)")
	if err := sess.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func pvLine(pv []board.Move) string {
	s := ""
	for i, m := range pv {
		if i > 0 {
			s += " "
		}
		s += m.String()
	}
	return s
}
