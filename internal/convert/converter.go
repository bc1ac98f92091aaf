// Package convert runs the ordered BLP → PNG icon conversion batch.
package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"blp-icon-converter/internal/logging"
)

// Decoder turns BLP bytes into a bitmap.
type Decoder interface {
	Decode(r io.Reader) (image.Image, error)
}

// selfTester is implemented by decoders that can prove they work before any
// task is attempted.
type selfTester interface {
	SelfTest() error
}

// Config holds the directories and output options for a run.
type Config struct {
	// SourceRoot contains the CommandButtons* subfolders.
	SourceRoot string
	DestDir    string
	// Size rescales output icons to Size×Size when positive.
	Size   int
	DryRun bool
}

const (
	defaultSourceRel = "../../../island-troll-tribes/imports/ReplaceableTextures"
	defaultDestRel   = "public/icons/itt"
)

// DefaultConfig lays out paths relative to the web app root.
func DefaultConfig(root string) Config {
	return Config{
		SourceRoot: filepath.Clean(filepath.Join(root, filepath.FromSlash(defaultSourceRel))),
		DestDir:    filepath.Clean(filepath.Join(root, filepath.FromSlash(defaultDestRel))),
	}
}

type Converter struct {
	cfg     Config
	decoder Decoder
	logger  *logging.Logger
	encoder png.Encoder
}

// New builds a converter. A nil decoder is accepted so that CheckCapability
// can report it.
func New(cfg Config, decoder Decoder, logger *logging.Logger) *Converter {
	if logger == nil {
		panic("convert.New: logger must not be nil")
	}
	return &Converter{
		cfg:     cfg,
		decoder: decoder,
		logger:  logger,
		encoder: png.Encoder{CompressionLevel: png.BestCompression},
	}
}

func (c *Converter) Config() Config {
	return c.cfg
}

func (c *Converter) CheckCapability() error {
	if c.decoder == nil {
		return ErrDecoderUnavailable
	}
	if st, ok := c.decoder.(selfTester); ok {
		if err := st.SelfTest(); err != nil {
			return fmt.Errorf("%w: %w", ErrDecoderUnavailable, err)
		}
	}
	c.logger.Debug("decoder available", logging.Field("decoder", fmt.Sprintf("%T", c.decoder)))
	return nil
}

func (c *Converter) CheckDirectories() error {
	if err := requireDir(c.cfg.SourceRoot); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSourceDirMissing, c.cfg.SourceRoot, err)
	}
	if err := requireDir(c.cfg.DestDir); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDestDirMissing, c.cfg.DestDir, err)
	}
	return nil
}

func requireDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path not set")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}

// Run processes tasks in order and returns the counters. onResult, when
// non-nil, sees every result as it is produced. Cancellation is honored
// between tasks.
func (c *Converter) Run(ctx context.Context, tasks []Task, onResult func(Result)) RunStats {
	stats := RunStats{Total: len(tasks), DryRun: c.cfg.DryRun}
	for i, task := range tasks {
		if ctx.Err() != nil {
			c.logger.Warn("interrupted", logging.Field("remaining", len(tasks)-i))
			stats.Interrupted = true
			break
		}
		res := c.ConvertTask(ctx, task)
		stats.Record(res)
		if onResult != nil {
			onResult(res)
		}
	}
	return stats
}

// ConvertTask classifies and, when needed, converts a single task. It never
// overwrites an existing destination.
func (c *Converter) ConvertTask(ctx context.Context, task Task) Result {
	res := Result{
		Task:       task,
		SourcePath: filepath.Join(c.cfg.SourceRoot, string(task.SourceSubfolder), task.SourceName),
		DestPath:   filepath.Join(c.cfg.DestDir, task.TargetName),
	}

	if _, err := os.Lstat(res.DestPath); err == nil {
		res.Outcome = Skipped
		c.logger.Info("skip (exists)", logging.Field("target", task.TargetName))
		return res
	}

	src, ok := c.resolveSource(res.SourcePath)
	if !ok {
		res.Outcome = NotFound
		c.logger.Warn("source not found", logging.Field("target", task.TargetName), logging.Field("source", res.SourcePath))
		return res
	}
	res.SourcePath = src

	if c.cfg.DryRun {
		res.Outcome = Converted
		c.logger.Info("[dry] would convert", logging.Field("source", task.SourceName), logging.Field("target", task.TargetName))
		return res
	}

	n, err := c.convertFile(ctx, res.SourcePath, res.DestPath)
	if err != nil {
		res.Outcome = Failed
		res.Err = err
		c.logger.Error("conversion failed",
			logging.Field("source", task.SourceName),
			logging.Field("target", task.TargetName),
			logging.Field("error", err),
		)
		return res
	}
	res.Outcome = Converted
	res.Bytes = n
	c.logger.Info("converted",
		logging.Field("source", task.SourceName),
		logging.Field("target", task.TargetName),
		logging.Field("bytes", n),
	)
	return res
}

// resolveSource returns the exact path when it exists, else the first
// case-insensitive match in the same directory.
func (c *Converter) resolveSource(path string) (string, bool) {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return path, true
	}
	dir, name := filepath.Split(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.EqualFold(entry.Name(), name) {
			match := filepath.Join(dir, entry.Name())
			c.logger.Debug("resolved source case-insensitively", logging.Field("want", name), logging.Field("found", entry.Name()))
			return match, true
		}
	}
	return "", false
}

func (c *Converter) convertFile(ctx context.Context, srcPath, destPath string) (int64, error) {
	img, err := c.decodeFile(srcPath)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	img = c.scale(img)
	return c.writePNG(img, destPath)
}

func (c *Converter) decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	img, err := c.decoder.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (c *Converter) scale(img image.Image) image.Image {
	size := c.cfg.Size
	b := img.Bounds()
	if size <= 0 || (b.Dx() == size && b.Dy() == size) {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	c.logger.Debug("scaled icon", logging.Field("from", fmt.Sprintf("%dx%d", b.Dx(), b.Dy())), logging.Field("to", size))
	return dst
}

// writePNG encodes into a temp file beside the destination and renames it
// into place, so a failed task never leaves a partial icon behind.
func (c *Converter) writePNG(img image.Image, destPath string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".iconconv-*.png")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if err := c.encoder.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, fmt.Errorf("encode png: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, fmt.Errorf("stat temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := os.Lstat(destPath); err == nil {
		cleanup()
		return 0, fmt.Errorf("write %s: %w", filepath.Base(destPath), fs.ErrExist)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		cleanup()
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	return info.Size(), nil
}

// DestKey is a short stable identifier for a destination directory. The
// destination lock and the run log files are named after it.
func DestKey(destDir string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(destDir)))
	return hex.EncodeToString(sum[:8])
}
