package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

var errNoDataHome = errors.New("no data directory for this platform")

// env abstracts the process environment for tests.
type env struct {
	goos   string
	getenv func(string) string
	home   func() (string, error)
}

var processEnv = env{goos: runtime.GOOS, getenv: os.Getenv, home: os.UserHomeDir}

// dataHome picks the per-user data root: an environment override when the
// platform has one, otherwise a fixed path under the home directory.
func (e env) dataHome() (string, error) {
	var override string
	var fallback []string
	switch e.goos {
	case "darwin":
		fallback = []string{"Library", "Application Support"}
	case "windows":
		override, fallback = "APPDATA", []string{"AppData", "Roaming"}
	default:
		override, fallback = "XDG_DATA_HOME", []string{".local", "share"}
	}
	if override != "" {
		if v := e.getenv(override); v != "" {
			return v, nil
		}
	}
	home, err := e.home()
	if err != nil || home == "" {
		return "", errors.Join(errNoDataHome, err)
	}
	return filepath.Join(append([]string{home}, fallback...)...), nil
}

// databaseDir is where Open keeps the badger files: dataDir/db, with dataDir
// defaulting to <data home>/athena.
func (e env) databaseDir(dataDir string) (string, error) {
	if dataDir == "" {
		root, err := e.dataHome()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(root, "athena")
	}
	dir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
