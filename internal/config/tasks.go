package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"blp-icon-converter/internal/convert"
)

var ErrEmptyManifest = errors.New("task manifest has no [[task]] entries")

type manifest struct {
	Tasks []manifestTask `toml:"task"`
}

type manifestTask struct {
	Target    string `toml:"target"`
	Source    string `toml:"source"`
	Subfolder string `toml:"subfolder"`
}

// LoadTasks returns the built-in list when path is empty, otherwise the
// ordered [[task]] entries of a TOML manifest:
//
//	[[task]]
//	target = "btnmammothboots.png"
//	source = "BTNMammothBoots.blp"
//	subfolder = "CommandButtons"
func LoadTasks(path string) ([]convert.Task, error) {
	if strings.TrimSpace(path) == "" {
		return convert.DefaultTasks(), nil
	}
	var m manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("read task manifest: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("task manifest %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if len(m.Tasks) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyManifest)
	}

	tasks := make([]convert.Task, 0, len(m.Tasks))
	for _, entry := range m.Tasks {
		tasks = append(tasks, convert.Task{
			TargetName:      strings.TrimSpace(entry.Target),
			SourceName:      strings.TrimSpace(entry.Source),
			SourceSubfolder: convert.Subfolder(strings.TrimSpace(entry.Subfolder)),
		})
	}
	if err := convert.ValidateTasks(tasks); err != nil {
		return nil, fmt.Errorf("task manifest %s: %w", path, err)
	}
	return tasks, nil
}
