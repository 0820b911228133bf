package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelParsing(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"Error": slog.LevelError,
	}
	for in, want := range cases {
		if got := (Config{Level: in}).level(); got != want {
			t.Fatalf("level(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	Setup(Config{Level: "debug", Dir: dir})
	slog.Info("file sink smoke", "key", "value")

	b, err := os.ReadFile(filepath.Join(dir, "hostbot.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "file sink smoke") {
		t.Fatalf("record missing from file: %q", b)
	}
	// The file handler is plain text with no terminal color escapes.
	if strings.Contains(string(b), "\033[") {
		t.Fatalf("file log contains color codes: %q", b)
	}
}

func TestFanoutRespectsLevel(t *testing.T) {
	dir := t.TempDir()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	Setup(Config{Level: "warn", Dir: dir})
	slog.Debug("too quiet to land")
	slog.Warn("loud enough")

	b, err := os.ReadFile(filepath.Join(dir, "hostbot.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(b), "too quiet") {
		t.Fatalf("debug record leaked through warn level")
	}
	if !strings.Contains(string(b), "loud enough") {
		t.Fatalf("warn record missing")
	}
}

func TestFanoutWithAttrsAndGroup(t *testing.T) {
	var h slog.Handler = fanout{
		slog.NewTextHandler(os.Stderr, nil),
		slog.NewTextHandler(os.Stderr, nil),
	}
	h = h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("g")
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("fanout should be enabled at info")
	}
}

func TestValOr(t *testing.T) {
	if valOr(0, 7) != 7 || valOr(-1, 7) != 7 || valOr(3, 7) != 3 {
		t.Fatalf("valOr broken")
	}
}
