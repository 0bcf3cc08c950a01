package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("LISTEN_LOG_PATH", "/tmp/listen-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/listen-env-log" {
		t.Errorf("got %q, want /tmp/listen-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("LISTEN_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Error("expected non-empty default directory")
	}
}

func TestNewWritesComponentFile(t *testing.T) {
	tmp := setupLogDir(t)

	logger := New("session")
	logger.Info().Str("event", "start").Msg("session started")

	data, err := os.ReadFile(filepath.Join(tmp, "session.log"))
	if err != nil {
		t.Fatalf("session.log not created: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "session started") {
		t.Errorf("log line missing message, got: %q", line)
	}
	if !strings.Contains(line, "pid=") {
		t.Errorf("log line missing pid field, got: %q", line)
	}
}

func TestNewSeparateFilesPerComponent(t *testing.T) {
	tmp := setupLogDir(t)

	New("improve").Info().Msg("one")
	New("models").Info().Msg("two")

	for _, name := range []string{"improve.log", "models.log"} {
		if _, err := os.Stat(filepath.Join(tmp, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestLevelFromEnv(t *testing.T) {
	cases := []struct {
		env  string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tc.env)
			if got := Level(); got != tc.want {
				t.Errorf("LOG_LEVEL=%q: got %v, want %v", tc.env, got, tc.want)
			}
		})
	}
}

func TestLevelFiltersOutput(t *testing.T) {
	tmp := setupLogDir(t)
	t.Setenv("LOG_LEVEL", "error")

	logger := New("quiet")
	logger.Info().Msg("should not appear")
	logger.Error().Msg("should appear")

	data, err := os.ReadFile(filepath.Join(tmp, "quiet.log"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "should not appear") {
		t.Errorf("info line written at error level: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("error line missing: %q", out)
	}
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	New("x").Info().Msg("hello")
	Close()
	Close() // should not panic
}
