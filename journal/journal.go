// Package journal records the outcome of every reconciled item.
package journal

import (
	"sort"
	"sync"
	"time"

	"github.com/func/seeder/resource"
)

// A State is the state of an item during reconciliation.
type State int

// Item states. Pending through Updating are transient; the others are
// terminal.
const (
	Pending State = iota
	Locating
	Creating
	Diffing
	Updating
	Unchanged
	Created
	Updated
	Deleted
	Conflict
	Failed
	PrecursorFailed
	Skipped
)

var stateNames = [...]string{
	Pending:         "Pending",
	Locating:        "Locating",
	Creating:        "Creating",
	Diffing:         "Diffing",
	Updating:        "Updating",
	Unchanged:       "Unchanged",
	Created:         "Created",
	Updated:         "Updated",
	Deleted:         "Deleted",
	Conflict:        "Conflict",
	Failed:          "Failed",
	PrecursorFailed: "PrecursorFailed",
	Skipped:         "Skipped",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether the state is final.
func (s State) Terminal() bool { return s >= Unchanged }

// Success reports whether the state counts as success.
func (s State) Success() bool {
	switch s {
	case Unchanged, Created, Updated, Deleted:
		return true
	}
	return false
}

// TerminalStates lists the terminal states in report order.
var TerminalStates = []State{Unchanged, Created, Updated, Deleted, Conflict, Failed, PrecursorFailed, Skipped}

// An Entry is the recorded outcome of a single item.
type Entry struct {
	Kind     string         `json:"kind"`
	Key      resource.Key   `json:"key"`
	State    State          `json:"state"`
	ID       string         `json:"id,omitempty"`
	Class    resource.Class `json:"class,omitempty"`
	Message  string         `json:"message,omitempty"`
	Attempts int            `json:"attempts"`
	Duration time.Duration  `json:"-"`

	// Changes lists the changed fields of an updated or conflicting item.
	Changes []string `json:"changes,omitempty"`

	// Index is the position of the item within its kind.
	Index int `json:"-"`
}

// A Journal accumulates entries. It is safe for concurrent use.
//
// The zero value is ready to use.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	notes   []string
	order   []string
}

// Record appends an entry.
func (j *Journal) Record(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.hasKind(e.Kind) {
		j.order = append(j.order, e.Kind)
	}
	j.entries = append(j.entries, e)
}

func (j *Journal) hasKind(kind string) bool {
	for _, k := range j.order {
		if k == kind {
			return true
		}
	}
	return false
}

// Note records a message that does not belong to a single item, such as a
// skipped optional service.
func (j *Journal) Note(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.notes = append(j.notes, msg)
}

// Notes returns the recorded notes.
func (j *Journal) Notes() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.notes...)
}

// Entries returns the recorded entries grouped by kind in the order kinds
// were first recorded, and by item index within a kind.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	rank := make(map[string]int, len(j.order))
	for i, k := range j.order {
		rank[k] = i
	}
	out := append([]Entry(nil), j.entries...)
	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := rank[out[a].Kind], rank[out[b].Kind]
		if ra != rb {
			return ra < rb
		}
		if out[a].State == Deleted || out[b].State == Deleted {
			return out[a].State != Deleted && out[b].State == Deleted
		}
		return out[a].Index < out[b].Index
	})
	return out
}

// Kinds returns the kinds with recorded entries, in the order they were first
// recorded.
func (j *Journal) Kinds() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.order...)
}

// Summary counts terminal states per kind.
type Summary map[string]map[State]int

// Summary counts the recorded entries.
func (j *Journal) Summary() Summary {
	s := make(Summary)
	for _, e := range j.Entries() {
		if s[e.Kind] == nil {
			s[e.Kind] = make(map[State]int)
		}
		s[e.Kind][e.State]++
	}
	return s
}

// Total returns the count of a state across all kinds.
func (s Summary) Total(state State) int {
	n := 0
	for _, counts := range s {
		n += counts[state]
	}
	return n
}

// Exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitConfig = 2
	ExitAuth   = 3
)

// ExitCode returns the process exit code for the recorded entries: ExitAuth
// if authentication failed for any item, ExitFailed if any item did not
// succeed, ExitOK otherwise.
func (j *Journal) ExitCode() int {
	code := ExitOK
	for _, e := range j.Entries() {
		if e.Class == resource.AuthInvalid {
			return ExitAuth
		}
		if !e.State.Success() {
			code = ExitFailed
		}
	}
	return code
}
