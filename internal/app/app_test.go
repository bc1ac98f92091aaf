package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"blp-icon-converter/internal/blp"
	"blp-icon-converter/internal/config"
	"blp-icon-converter/internal/convert"
	"blp-icon-converter/internal/logging"
	"blp-icon-converter/internal/ui/console"
)

type testEnv struct {
	cfg    convert.Config
	opts   config.Options
	out    bytes.Buffer
	logger *logging.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)
	t.Setenv("HOME", cache)
	t.Setenv("LocalAppData", cache)

	root := t.TempDir()
	env := &testEnv{
		cfg: convert.Config{
			SourceRoot: filepath.Join(root, "textures"),
			DestDir:    filepath.Join(root, "icons"),
		},
		opts:   config.Options{LockTimeout: 0},
		logger: logging.New(false),
	}
	env.logger.SetTerminalOutputEnabled(false)
	for _, dir := range []string{
		filepath.Join(env.cfg.SourceRoot, string(convert.CommandButtons)),
		filepath.Join(env.cfg.SourceRoot, string(convert.CommandButtonsDisabled)),
		env.cfg.DestDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("MkdirAll(%s): %v", dir, err)
		}
	}
	return env
}

func (e *testEnv) writeSource(t *testing.T, sub convert.Subfolder, name string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		img.SetNRGBA(i%4, i/4, color.NRGBA{R: uint8(i * 10), G: 40, B: 90, A: 255})
	}
	var buf bytes.Buffer
	if err := blp.Encode(&buf, img); err != nil {
		t.Fatalf("blp.Encode() error = %v", err)
	}
	path := filepath.Join(e.cfg.SourceRoot, string(sub), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func (e *testEnv) output() string {
	return strings.Join(strings.Fields(e.out.String()), " ")
}

func (e *testEnv) run(t *testing.T, decoder convert.Decoder) int {
	t.Helper()
	conv := convert.New(e.cfg, decoder, e.logger)
	a := New(e.opts, conv, convert.DefaultTasks(), e.logger, console.New(&e.out, false))
	return a.Run(context.Background())
}

func TestRun_ConvertsPresentSourceAndReportsMissing(t *testing.T) {
	env := newTestEnv(t)
	env.writeSource(t, convert.CommandButtons, "BTNMammothBoots.blp")

	if code := env.run(t, blp.Codec{}); code != ExitOK {
		t.Fatalf("Run() = %d, want %d; output:\n%s", code, ExitOK, env.out.String())
	}
	if _, err := os.Stat(filepath.Join(env.cfg.DestDir, "btnmammothboots.png")); err != nil {
		t.Fatalf("expected converted icon: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.DestDir, "disbtnmammothboots.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing source produced output, stat error = %v", err)
	}
	out := env.output()
	for _, want := range []string{"Converting 2 icon(s)", "Converted: 1", "Not found/Failed: 1", "Icons converted successfully."} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_SecondRunSkipsWithoutSuccessLine(t *testing.T) {
	env := newTestEnv(t)
	env.writeSource(t, convert.CommandButtons, "BTNMammothBoots.blp")
	env.writeSource(t, convert.CommandButtonsDisabled, "DISBTNMammothBoots.blp")

	if code := env.run(t, blp.Codec{}); code != ExitOK {
		t.Fatalf("first Run() = %d, want %d", code, ExitOK)
	}
	env.out.Reset()
	if code := env.run(t, blp.Codec{}); code != ExitOK {
		t.Fatalf("second Run() = %d, want %d", code, ExitOK)
	}
	out := env.output()
	if !strings.Contains(out, "Skipped:") || !strings.Contains(out, "Converted: 0") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if strings.Contains(out, "Icons converted successfully.") {
		t.Fatalf("success line printed with nothing converted:\n%s", out)
	}
}

type unavailableDecoder struct{}

func (unavailableDecoder) Decode(io.Reader) (image.Image, error) { return nil, errors.New("unused") }
func (unavailableDecoder) SelfTest() error                       { return errors.New("codec not linked") }

func TestRun_DecoderCheckedBeforeDirectories(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.DestDir = filepath.Join(t.TempDir(), "absent")

	if code := env.run(t, unavailableDecoder{}); code != ExitFatal {
		t.Fatalf("Run() = %d, want %d", code, ExitFatal)
	}
	out := env.output()
	if !strings.Contains(out, "BLP decoder unavailable") {
		t.Fatalf("output does not report decoder failure:\n%s", out)
	}
	if strings.Contains(out, "destination icon directory") {
		t.Fatalf("directory check ran after decoder failure:\n%s", out)
	}
	if strings.Contains(out, "Summary") {
		t.Fatalf("summary printed after fatal error:\n%s", out)
	}
}

func TestRun_MissingDirectoriesAreFatal(t *testing.T) {
	tests := []struct {
		name string
		edit func(*testEnv, string)
		want string
	}{
		{
			name: "source",
			edit: func(e *testEnv, dir string) { e.cfg.SourceRoot = dir },
			want: "source texture directory not found",
		},
		{
			name: "dest",
			edit: func(e *testEnv, dir string) { e.cfg.DestDir = dir },
			want: "destination icon directory not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.edit(env, filepath.Join(t.TempDir(), "absent"))
			if code := env.run(t, blp.Codec{}); code != ExitFatal {
				t.Fatalf("Run() = %d, want %d", code, ExitFatal)
			}
			if !strings.Contains(env.output(), tt.want) {
				t.Fatalf("output missing %q:\n%s", tt.want, env.out.String())
			}
		})
	}
}

func TestRun_StrictExitOnMisses(t *testing.T) {
	tests := []struct {
		strict bool
		want   int
	}{
		{strict: false, want: ExitOK},
		{strict: true, want: ExitPartial},
	}
	for _, tt := range tests {
		env := newTestEnv(t)
		env.opts.Strict = tt.strict
		if code := env.run(t, blp.Codec{}); code != tt.want {
			t.Fatalf("Run(strict=%v) = %d, want %d", tt.strict, code, tt.want)
		}
	}
}

func TestRun_DestinationLockHeld(t *testing.T) {
	env := newTestEnv(t)
	env.writeSource(t, convert.CommandButtons, "BTNMammothBoots.blp")

	lockPath, err := destLockPath(env.cfg.DestDir)
	if err != nil {
		t.Fatalf("destLockPath() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	holder := flock.New(lockPath)
	if ok, err := holder.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock() = %v, %v", ok, err)
	}
	defer holder.Unlock()

	if code := env.run(t, blp.Codec{}); code != ExitFatal {
		t.Fatalf("Run() = %d, want %d", code, ExitFatal)
	}
	if !strings.Contains(env.output(), "locked by another iconconv run") {
		t.Fatalf("output does not report lock:\n%s", env.out.String())
	}
	if _, err := os.Stat(filepath.Join(env.cfg.DestDir, "btnmammothboots.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("task ran while lock was held, stat error = %v", err)
	}
}

func TestRun_DryRunSkipsLock(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.DryRun = true
	env.writeSource(t, convert.CommandButtons, "BTNMammothBoots.blp")

	lockPath, err := destLockPath(env.cfg.DestDir)
	if err != nil {
		t.Fatalf("destLockPath() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	holder := flock.New(lockPath)
	if ok, err := holder.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock() = %v, %v", ok, err)
	}
	defer holder.Unlock()

	if code := env.run(t, blp.Codec{}); code != ExitOK {
		t.Fatalf("Run() = %d, want %d", code, ExitOK)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.DestDir, "btnmammothboots.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run wrote output, stat error = %v", err)
	}
	out := env.output()
	if strings.Contains(out, "Icons converted successfully.") {
		t.Fatalf("dry run printed success line:\n%s", out)
	}
	if !strings.Contains(out, "Dry run: 1 icon(s) would be converted.") {
		t.Fatalf("output missing dry run line:\n%s", out)
	}
}

func TestRun_WatchFailureExitsFatalAfterSummary(t *testing.T) {
	env := newTestEnv(t)
	env.opts.Watch = true
	for _, sub := range []convert.Subfolder{convert.CommandButtons, convert.CommandButtonsDisabled} {
		if err := os.RemoveAll(filepath.Join(env.cfg.SourceRoot, string(sub))); err != nil {
			t.Fatalf("RemoveAll(%s): %v", sub, err)
		}
	}

	if code := env.run(t, blp.Codec{}); code != ExitFatal {
		t.Fatalf("Run() = %d, want %d; output:\n%s", code, ExitFatal, env.out.String())
	}
	out := env.output()
	for _, want := range []string{"no source directories could be watched", "Summary", "Not found/Failed: 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDestLockPathNamedAfterDestKey(t *testing.T) {
	env := newTestEnv(t)
	lockPath, err := destLockPath(env.cfg.DestDir)
	if err != nil {
		t.Fatalf("destLockPath() error = %v", err)
	}
	if got, want := filepath.Base(lockPath), convert.DestKey(env.cfg.DestDir)+".lock"; got != want {
		t.Fatalf("lock file = %q, want %q", got, want)
	}
}

func TestAcquireDestLock_WaitsForRelease(t *testing.T) {
	env := newTestEnv(t)
	lockPath, err := destLockPath(env.cfg.DestDir)
	if err != nil {
		t.Fatalf("destLockPath() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	holder := flock.New(lockPath)
	if ok, err := holder.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock() = %v, %v", ok, err)
	}
	time.AfterFunc(150*time.Millisecond, func() { _ = holder.Unlock() })

	lock, err := acquireDestLock(context.Background(), env.cfg.DestDir, 5*time.Second, env.logger)
	if err != nil {
		t.Fatalf("acquireDestLock() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
}
