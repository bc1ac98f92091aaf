package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"blp-icon-converter/internal/convert"
)

type Options struct {
	Root        string        `long:"root" env:"ICONCONV_ROOT" description:"Web app root; default texture and icon paths are resolved from it (default: working directory)"`
	SourceDir   string        `long:"source-dir" env:"ICONCONV_SOURCE_DIR" description:"ReplaceableTextures directory holding CommandButtons and CommandButtonsDisabled"`
	DestDir     string        `long:"dest-dir" env:"ICONCONV_DEST_DIR" description:"Directory receiving the PNG icons"`
	TasksFile   string        `long:"tasks" env:"ICONCONV_TASKS" description:"TOML manifest replacing the built-in conversion list"`
	Size        int           `long:"size" env:"ICONCONV_SIZE" description:"Rescale icons to NxN pixels (0 keeps the native size)"`
	DryRun      bool          `long:"dry-run" description:"Report what would be converted without writing files"`
	Strict      bool          `long:"strict" env:"ICONCONV_STRICT" description:"Exit with status 3 when any task is not found or fails"`
	Watch       bool          `long:"watch" description:"Keep running and convert sources as they appear"`
	Debounce    time.Duration `long:"debounce" default:"500ms" description:"Quiet period before a watched change is converted"`
	LockTimeout time.Duration `long:"lock-timeout" env:"ICONCONV_LOCK_TIMEOUT" default:"10s" description:"How long to wait for another run holding the destination lock"`
	LogDir      string        `long:"log-dir" env:"ICONCONV_LOG_DIR" description:"Persist JSONL run logs in this directory"`
	Debug       bool          `long:"debug" env:"ICONCONV_DEBUG" description:"Enable verbose debug output"`
	NoColor     bool          `long:"no-color" description:"Disable colored output"`
}

const maxIconSize = 1024

// ParseOptions loads an optional .env file and parses args (without the
// program name). A *flags.Error of type flags.ErrHelp carries the usage text.
func ParseOptions(args []string) (Options, error) {
	_ = godotenv.Load()
	opts := Options{}
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "iconconv"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		return Options{}, err
	}
	if len(rest) > 0 {
		return Options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}
	return opts, nil
}

func ValidateOptions(opts Options) error {
	if opts.Size < 0 || opts.Size > maxIconSize {
		return fmt.Errorf("size must be between 0 and %d, got %d", maxIconSize, opts.Size)
	}
	if opts.Debounce < 0 {
		return errors.New("debounce must not be negative")
	}
	if opts.LockTimeout < 0 {
		return errors.New("lock timeout must not be negative")
	}
	if opts.Watch && opts.DryRun {
		return errors.New("watch and dry-run cannot be combined")
	}
	return nil
}

// ResolvePaths builds the converter configuration. Explicit directories win
// over the layout derived from the root.
func ResolvePaths(opts Options) (convert.Config, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return convert.Config{}, fmt.Errorf("resolve working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return convert.Config{}, fmt.Errorf("resolve root %q: %w", opts.Root, err)
	}

	cfg := convert.DefaultConfig(root)
	if dir := strings.TrimSpace(opts.SourceDir); dir != "" {
		if cfg.SourceRoot, err = filepath.Abs(dir); err != nil {
			return convert.Config{}, fmt.Errorf("resolve source dir %q: %w", dir, err)
		}
	}
	if dir := strings.TrimSpace(opts.DestDir); dir != "" {
		if cfg.DestDir, err = filepath.Abs(dir); err != nil {
			return convert.Config{}, fmt.Errorf("resolve dest dir %q: %w", dir, err)
		}
	}
	cfg.Size = opts.Size
	cfg.DryRun = opts.DryRun
	return cfg, nil
}
