package convert

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Subfolder names a texture category under the ReplaceableTextures root.
type Subfolder string

const (
	CommandButtons         Subfolder = "CommandButtons"
	CommandButtonsDisabled Subfolder = "CommandButtonsDisabled"
)

func (s Subfolder) Valid() bool {
	return s == CommandButtons || s == CommandButtonsDisabled
}

// Task is one requested conversion. Tasks are immutable once built.
type Task struct {
	TargetName      string
	SourceName      string
	SourceSubfolder Subfolder
}

func (t Task) String() string {
	return fmt.Sprintf("%s/%s -> %s", t.SourceSubfolder, t.SourceName, t.TargetName)
}

func (t Task) Validate() error {
	switch {
	case strings.TrimSpace(t.TargetName) == "":
		return fmt.Errorf("%w: missing target name", ErrInvalidTask)
	case strings.TrimSpace(t.SourceName) == "":
		return fmt.Errorf("%w: missing source name for %s", ErrInvalidTask, t.TargetName)
	case t.TargetName != strings.ToLower(t.TargetName):
		return fmt.Errorf("%w: target %q must be lowercase", ErrInvalidTask, t.TargetName)
	case !strings.EqualFold(filepath.Ext(t.TargetName), ".png"):
		return fmt.Errorf("%w: target %q must end in .png", ErrInvalidTask, t.TargetName)
	case !strings.EqualFold(filepath.Ext(t.SourceName), ".blp"):
		return fmt.Errorf("%w: source %q must end in .blp", ErrInvalidTask, t.SourceName)
	case filepath.Base(t.TargetName) != t.TargetName || filepath.Base(t.SourceName) != t.SourceName:
		return fmt.Errorf("%w: %s must name plain files", ErrInvalidTask, t)
	case !t.SourceSubfolder.Valid():
		return fmt.Errorf("%w: unknown subfolder %q", ErrInvalidTask, t.SourceSubfolder)
	}
	return nil
}

// ValidateTasks checks every task and rejects duplicate targets.
func ValidateTasks(tasks []Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for i, task := range tasks {
		if err := task.Validate(); err != nil {
			return fmt.Errorf("task %d: %w", i+1, err)
		}
		if _, dup := seen[task.TargetName]; dup {
			return fmt.Errorf("task %d: %w: duplicate target %q", i+1, ErrInvalidTask, task.TargetName)
		}
		seen[task.TargetName] = struct{}{}
	}
	return nil
}

// DefaultTasks is the fixed conversion list shipped with the tool.
func DefaultTasks() []Task {
	return []Task{
		{TargetName: "btnmammothboots.png", SourceName: "BTNMammothBoots.blp", SourceSubfolder: CommandButtons},
		{TargetName: "disbtnmammothboots.png", SourceName: "DISBTNMammothBoots.blp", SourceSubfolder: CommandButtonsDisabled},
	}
}

// Outcome is the terminal classification of a task.
type Outcome int

const (
	Pending Outcome = iota
	Skipped
	NotFound
	Converted
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case NotFound:
		return "not found"
	case Converted:
		return "converted"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Result records what happened to one task.
type Result struct {
	Task       Task
	Outcome    Outcome
	SourcePath string
	DestPath   string
	Bytes      int64
	Err        error
}
