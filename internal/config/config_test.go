package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/magic"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	c, err := FromEnv(env(nil))
	if err != nil {
		t.Fatal(err)
	}
	if c.Engine.HashMB != 64 || c.Engine.Threads != 1 || c.Engine.Depth != engine.DefaultDepth {
		t.Errorf("engine defaults %+v", c.Engine)
	}
	if c.Engine.MoveTime != 2*time.Second || c.Engine.Evaluator != "pst" || c.Engine.PersistHash {
		t.Errorf("engine defaults %+v", c.Engine)
	}
	if c.Magic.Budget != magic.DefaultBudget || c.Magic.Seed != magic.DefaultSeed || !c.Magic.Cache || c.Magic.Workers != 0 {
		t.Errorf("magic defaults %+v", c.Magic)
	}
	if c.Service.Listen != "127.0.0.1:7878" || c.Service.HTTP != "" {
		t.Errorf("service defaults %+v", c.Service)
	}
	if c.Log.Level != "info" || c.Log.Pretty {
		t.Errorf("log defaults %+v", c.Log)
	}
}

func TestFromEnv(t *testing.T) {
	c, err := FromEnv(env(map[string]string{
		"ATHENA_HASH_MB":       "16",
		"ATHENA_THREADS":       "4",
		"ATHENA_DEPTH":         "9",
		"ATHENA_MOVETIME_MS":   "250",
		"ATHENA_EVALUATOR":     "material",
		"ATHENA_PERSIST_HASH":  "true",
		"ATHENA_MAGIC_WORKERS": "2",
		"ATHENA_MAGIC_BUDGET":  "1000",
		"ATHENA_MAGIC_SEED":    "0x2a",
		"ATHENA_MAGIC_CACHE":   "false",
		"ATHENA_DATA_DIR":      "/tmp/athena",
		"ATHENA_LISTEN":        ":9000",
		"ATHENA_HTTP":          ":8080",
		"ATHENA_LOG_LEVEL":     "debug",
		"ATHENA_LOG_PRETTY":    "1",
		"ATHENA_THREADS_EXTRA": "ignored",
	}))
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		Engine:  EngineConfig{HashMB: 16, Threads: 4, Depth: 9, MoveTime: 250 * time.Millisecond, Evaluator: "material", PersistHash: true},
		Magic:   MagicConfig{Workers: 2, Budget: 1000, Seed: 42, Cache: false},
		Service: ServiceConfig{Listen: ":9000", HTTP: ":8080"},
		Log:     LogConfig{Level: "debug", Pretty: true},
		DataDir: "/tmp/athena",
	}
	if c != want {
		t.Errorf("got  %+v\nwant %+v", c, want)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"ATHENA_HASH_MB", "lots"},
		{"ATHENA_HASH_MB", "0"},
		{"ATHENA_THREADS", "0"},
		{"ATHENA_DEPTH", "-1"},
		{"ATHENA_DEPTH", "500"},
		{"ATHENA_MOVETIME_MS", "soon"},
		{"ATHENA_EVALUATOR", "nnue"},
		{"ATHENA_PERSIST_HASH", "maybe"},
		{"ATHENA_MAGIC_SEED", "-3"},
		{"ATHENA_MAGIC_BUDGET", "0"},
		{"ATHENA_LOG_LEVEL", "loud"},
	}
	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			_, err := FromEnv(env(map[string]string{tc.key: tc.value}))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	c, err := FromEnv(env(map[string]string{"ATHENA_DEPTH": "3", "ATHENA_THREADS": "2"}))
	if err != nil {
		t.Fatal(err)
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)
	if err := fs.Parse([]string{"-depth", "7", "-movetime", "1s", "-http", ":8081"}); err != nil {
		t.Fatal(err)
	}
	if c.Engine.Depth != 7 || c.Engine.Threads != 2 || c.Engine.MoveTime != time.Second || c.Service.HTTP != ":8081" {
		t.Errorf("after flags %+v %+v", c.Engine, c.Service)
	}
	if b := c.Budget(); b.MaxDepth != 7 || b.MaxTime != time.Second {
		t.Errorf("budget %+v", b)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "athena.env")
	if err := os.WriteFile(path, []byte("ATHENA_HASH_MB=8\nATHENA_EVALUATOR=material\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ATHENA_EVALUATOR", "pst") // already set wins over the file
	t.Setenv("ATHENA_HASH_MB", "")
	os.Unsetenv("ATHENA_HASH_MB")

	c, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Engine.HashMB != 8 || c.Engine.Evaluator != "pst" {
		t.Errorf("engine %+v", c.Engine)
	}
}

func TestOptions(t *testing.T) {
	c := Default()
	c.Engine.Evaluator = "material"
	opts, err := c.EngineOptions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := opts.Evaluator.(engine.Material); !ok || opts.HashMB != 64 {
		t.Errorf("engine options %+v", opts)
	}

	cache := nopCache{}
	if mo := c.MagicOptions(cache, nil); mo.Cache == nil {
		t.Errorf("cache dropped while enabled")
	}
	c.Magic.Cache = false
	if mo := c.MagicOptions(cache, nil); mo.Cache != nil {
		t.Errorf("cache kept while disabled")
	}
}

type nopCache struct{}

func (nopCache) LoadMagics(magic.Kind) ([64]uint64, bool, error) { return [64]uint64{}, false, nil }
func (nopCache) StoreMagics(magic.Kind, [64]uint64) error        { return nil }
