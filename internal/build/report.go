package build

import (
	"sort"
	"sync"
	"time"
)

// Action is the terminal state of one file in a build.
type Action string

const (
	ActionWritten  Action = "written"
	ActionCopied   Action = "copied"
	ActionUpToDate Action = "up-to-date"
	ActionRemoved  Action = "removed"
	ActionIgnored  Action = "ignored"
	ActionTemplate Action = "template"
)

// Report records what a build did. Files that produce output are keyed by
// their output-relative path; removed and ignored files by their source
// path.
type Report struct {
	ID       string
	Mode     Mode
	Duration time.Duration

	mu      sync.RWMutex
	actions map[string]Action
}

func newReport(id string, mode Mode) *Report {
	return &Report{ID: id, Mode: mode, actions: make(map[string]Action)}
}

func (r *Report) record(path string, action Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[path] = action
}

// Action returns the terminal state recorded for path.
func (r *Report) Action(path string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[path]
	return a, ok
}

// Paths returns the sorted paths that ended in action.
func (r *Report) Paths(action Action) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for p, a := range r.actions {
		if a == action {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Counts returns the number of files per action.
func (r *Report) Counts() map[Action]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Action]int)
	for _, a := range r.actions {
		out[a]++
	}
	return out
}

// Changed reports whether the build rewrote any output file.
func (r *Report) Changed() bool {
	counts := r.Counts()
	return counts[ActionWritten]+counts[ActionCopied]+counts[ActionTemplate] > 0
}
