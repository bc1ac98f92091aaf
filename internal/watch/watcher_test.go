package watch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"

	"blp-icon-converter/internal/convert"
	"blp-icon-converter/internal/logging"
)

type recordingConverter struct {
	calls []convert.Task
}

func (r *recordingConverter) ConvertTask(_ context.Context, task convert.Task) convert.Result {
	r.calls = append(r.calls, task)
	return convert.Result{Task: task, Outcome: convert.Converted}
}

func quietLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

var testTasks = []convert.Task{
	{TargetName: "btnmammothboots.png", SourceName: "BTNMammothBoots.blp", SourceSubfolder: convert.CommandButtons},
	{TargetName: "disbtnmammothboots.png", SourceName: "DISBTNMammothBoots.blp", SourceSubfolder: convert.CommandButtonsDisabled},
}

func TestHandleEvent_QueuesMatchingSourcesInTaskOrder(t *testing.T) {
	cfg := convert.Config{SourceRoot: "/textures"}
	conv := &recordingConverter{}
	var results []convert.Result
	w := New(conv, cfg, testTasks, 0, quietLogger(), func(r convert.Result) { results = append(results, r) })

	disabled := filepath.Join("/textures", "CommandButtonsDisabled", "DISBTNMammothBoots.blp")
	enabled := filepath.Join("/textures", "CommandButtons", "btnmammothboots.BLP")
	if !w.handleEvent(fsnotify.Event{Name: disabled, Op: fsnotify.Create}) {
		t.Fatalf("handleEvent(create disabled) = false")
	}
	if !w.handleEvent(fsnotify.Event{Name: enabled, Op: fsnotify.Write}) {
		t.Fatalf("handleEvent(write enabled, different case) = false")
	}
	w.flush(context.Background())

	if len(conv.calls) != 2 || conv.calls[0] != testTasks[0] || conv.calls[1] != testTasks[1] {
		t.Fatalf("converted %+v, want task-list order", conv.calls)
	}
	if len(results) != 2 {
		t.Fatalf("onResult called %d times, want 2", len(results))
	}

	w.flush(context.Background())
	if len(conv.calls) != 2 {
		t.Fatalf("flush re-ran tasks with nothing pending: %+v", conv.calls)
	}
}

func TestHandleEvent_IgnoresUnrelated(t *testing.T) {
	w := New(&recordingConverter{}, convert.Config{SourceRoot: "/textures"}, testTasks, 0, quietLogger(), nil)
	tests := []fsnotify.Event{
		{Name: filepath.Join("/textures", "CommandButtons", "BTNOther.blp"), Op: fsnotify.Create},
		{Name: filepath.Join("/textures", "CommandButtons", "BTNMammothBoots.blp"), Op: fsnotify.Remove},
		{Name: filepath.Join("/textures", "CommandButtonsDisabled", "BTNMammothBoots.blp"), Op: fsnotify.Create},
	}
	for _, ev := range tests {
		if w.handleEvent(ev) {
			t.Fatalf("handleEvent(%v) = true, want false", ev)
		}
	}
	if len(w.pending) != 0 {
		t.Fatalf("pending = %v, want empty", w.pending)
	}
}

func TestRun_NothingToWatch(t *testing.T) {
	cfg := convert.Config{SourceRoot: filepath.Join(t.TempDir(), "absent")}
	w := New(&recordingConverter{}, cfg, testTasks, 0, quietLogger(), nil)
	if err := w.Run(context.Background()); !errors.Is(err, ErrNothingToWatch) {
		t.Fatalf("Run() error = %v, want ErrNothingToWatch", err)
	}
}
