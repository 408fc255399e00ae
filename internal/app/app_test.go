package app

import (
	"testing"

	"github.com/hailam/athena/internal/board"
	"github.com/hailam/athena/internal/config"
	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/magic"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Engine.HashMB = 2
	return cfg
}

func TestSetup(t *testing.T) {
	a, err := Setup(testConfig(), Options{InMemoryStore: true, RequireStore: true})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	for _, kind := range magic.Kinds {
		if _, ok, err := a.Store.LoadMagics(kind); err != nil || !ok {
			t.Errorf("%s magics not cached: ok=%v err=%v", kind, ok, err)
		}
	}

	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}
	if n := a.Gen.Perft(&pos, 3); n != 8902 {
		t.Errorf("perft(3) = %d", n)
	}
	if res := a.Engine.Search(pos, engine.Budget{MaxDepth: 1}); res.Move == board.NoMove {
		t.Errorf("no move from the assembled engine")
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if a.Store != nil {
		t.Errorf("store kept after Close")
	}
}

func TestSetupRejectsUnknownEvaluator(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Evaluator = "nnue"
	if _, err := Setup(cfg, Options{InMemoryStore: true}); err == nil {
		t.Errorf("unknown evaluator accepted")
	}
}
