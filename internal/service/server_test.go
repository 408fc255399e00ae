package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/magic"
	"github.com/hailam/athena/internal/movegen"
	"github.com/hailam/athena/internal/protocol"
	"github.com/hailam/athena/internal/storage"
)

var gen *movegen.Generator

func TestMain(m *testing.M) {
	tables, err := magic.Initialize(magic.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	gen = movegen.New(tables)
	os.Exit(m.Run())
}

// startServer runs a server on a loopback port and returns its address and a
// function that stops it and reports Serve's error.
func startServer(t *testing.T, store *storage.Store) (string, func() error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	eng := engine.New(gen, engine.Options{HashMB: 2})
	srv := New(eng, engine.Budget{MaxDepth: 2}, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			return fmt.Errorf("server did not stop")
		}
	}
	return ln.Addr().String(), stop
}

type client struct {
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(10 * time.Second))
	return &client{conn: conn, r: bufio.NewReader(conn)}
}

// send writes a text command and reads reply lines through the final
// "ok"/"error" line.
func (c *client) send(t *testing.T, line string) []string {
	t.Helper()
	if _, err := fmt.Fprintln(c.conn, line); err != nil {
		t.Fatal(err)
	}
	var out []string
	for {
		l, err := c.r.ReadString('\n')
		if err != nil {
			t.Fatalf("read after %q: %v (got %q)", line, err, out)
		}
		l = strings.TrimRight(l, "\n")
		out = append(out, l)
		if strings.HasPrefix(l, "ok") || strings.HasPrefix(l, "error") {
			return out
		}
	}
}

func TestSessionOverTCP(t *testing.T) {
	addr, stop := startServer(t, nil)
	c := dial(t, addr)

	if got := c.send(t, "move e2e4"); got[0] != "played e2e4" {
		t.Errorf("move reply %q", got)
	}
	if got := c.send(t, "move e2e4"); !strings.HasPrefix(got[0], "error") {
		t.Errorf("replayed move accepted: %q", got)
	}
	if got := c.send(t, "go depth 1"); !strings.HasPrefix(got[0], "bestmove ") {
		t.Errorf("go reply %q", got)
	}

	fmt.Fprintln(c.conn, `{"cmd":"moves"}`)
	line, err := c.r.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	var resp protocol.Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil || !resp.OK || len(resp.Moves) != 20 {
		t.Errorf("json reply %q (err %v)", line, err)
	}

	if got := c.send(t, "quit"); got[0] != "ok bye" {
		t.Errorf("quit reply %q", got)
	}
	if _, err := c.r.ReadString('\n'); err == nil {
		t.Errorf("connection still open after quit")
	}
	if err := stop(); err != nil {
		t.Fatal(err)
	}
}

func TestConnectionsHaveSeparateGames(t *testing.T) {
	addr, stop := startServer(t, nil)
	a, b := dial(t, addr), dial(t, addr)

	a.send(t, "move d2d4")
	if got := b.send(t, "fen"); !strings.Contains(got[0], "/PPPPPPPP/") {
		t.Errorf("second connection sees the first one's move: %q", got)
	}
	if got := a.send(t, "fen"); strings.Contains(got[0], "/PPPPPPPP/") {
		t.Errorf("first connection lost its move: %q", got)
	}
	if err := stop(); err != nil {
		t.Fatal(err)
	}
}

func TestStopClosesOpenConnections(t *testing.T) {
	addr, stop := startServer(t, nil)
	c := dial(t, addr)
	c.send(t, "fen")

	if err := stop(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.r.ReadString('\n'); err == nil {
		t.Errorf("connection survived shutdown")
	}
}

func TestFinishedGamesAreCounted(t *testing.T) {
	store, err := storage.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	addr, stop := startServer(t, store)
	c := dial(t, addr)
	for _, m := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		c.send(t, "move "+m)
	}
	if got := c.send(t, "status"); got[0] != "status checkmate result 0-1" {
		t.Errorf("status %q", got)
	}
	if err := stop(); err != nil {
		t.Fatal(err)
	}

	stats, err := store.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.GamesFinished != 1 || stats.BlackWins != 1 {
		t.Errorf("stats %+v", stats)
	}
}

func TestListenAndServeBadAddress(t *testing.T) {
	srv := New(engine.New(gen, engine.Options{HashMB: 1}), engine.Budget{}, nil, nil)
	if err := srv.ListenAndServe(context.Background(), "256.0.0.1:bad"); err == nil {
		t.Errorf("listened on a bad address")
	}
}
