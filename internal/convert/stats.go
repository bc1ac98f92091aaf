package convert

// RunStats tracks aggregate counters across a batch run.
type RunStats struct {
	Total        int
	Converted    int
	Skipped      int
	NotFound     int
	Failed       int
	BytesWritten int64
	Interrupted  bool
	// DryRun marks counters that describe what would have been written.
	DryRun bool
}

func (s *RunStats) Record(r Result) {
	switch r.Outcome {
	case Converted:
		s.Converted++
		s.BytesWritten += r.Bytes
	case Skipped:
		s.Skipped++
	case NotFound:
		s.NotFound++
	case Failed:
		s.Failed++
	}
}

// Missed is the combined not-found and failed count.
func (s RunStats) Missed() int {
	return s.NotFound + s.Failed
}

// Processed is the number of tasks that reached a terminal outcome.
func (s RunStats) Processed() int {
	return s.Converted + s.Skipped + s.NotFound + s.Failed
}

// Merge adds other's counters to s; used to accumulate watch-mode passes.
func (s *RunStats) Merge(other RunStats) {
	s.Total += other.Total
	s.Converted += other.Converted
	s.Skipped += other.Skipped
	s.NotFound += other.NotFound
	s.Failed += other.Failed
	s.BytesWritten += other.BytesWritten
	s.Interrupted = s.Interrupted || other.Interrupted
	s.DryRun = s.DryRun || other.DryRun
}
