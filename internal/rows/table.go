// Package rows holds the service table shown to the operator: one row per
// service name with its status, PID and interactivity. It is owned by a
// single goroutine and is not safe for concurrent use.
package rows

import (
	"strings"
	"time"

	"github.com/BrainStation-23/serman/internal/scheduler"
	"github.com/BrainStation-23/serman/internal/service"
)

// Row is one displayed service.
type Row struct {
	Name   string
	Status string
	PID    string
	// Busy rows have an operation in flight and accept no new ones.
	Busy bool
	// Marked rows are part of the current selection.
	Marked bool
	// LastOutput is the tool output of the most recent operation.
	LastOutput string
	LastErr    error
	// ObservedAt is when the displayed status was queried.
	ObservedAt time.Time
}

// Table is an ordered, name-keyed set of rows.
type Table struct {
	rows  []Row
	index map[string]int
}

// New builds a table from a snapshot, preserving its order.
func New(snap service.Snapshot) *Table {
	t := &Table{}
	t.Reset(snap)
	return t
}

// Reset replaces every row with snap. Marks are dropped; a service that is
// still in snap stays busy until its operation's result is applied.
func (t *Table) Reset(snap service.Snapshot) {
	busy := make(map[string]bool)
	for _, r := range t.rows {
		if r.Busy {
			busy[r.Name] = true
		}
	}

	t.rows = make([]Row, 0, len(snap))
	t.index = make(map[string]int, len(snap))
	for _, svc := range snap {
		if _, dup := t.index[svc.Name]; dup {
			continue
		}
		t.index[svc.Name] = len(t.rows)
		t.rows = append(t.rows, Row{Name: svc.Name, Status: svc.Status, PID: svc.PID, Busy: busy[svc.Name]})
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Names returns every row name in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.rows))
	for i, r := range t.rows {
		names[i] = r.Name
	}
	return names
}

// Get returns the row for name.
func (t *Table) Get(name string) (Row, bool) {
	i, ok := t.index[name]
	if !ok {
		return Row{}, false
	}
	return t.rows[i], true
}

// Disable marks name busy. It reports false if the row is unknown or
// already busy, in which case no operation may be submitted for it.
func (t *Table) Disable(name string) bool {
	i, ok := t.index[name]
	if !ok || t.rows[i].Busy {
		return false
	}
	t.rows[i].Busy = true
	t.rows[i].Marked = false
	return true
}

// Enable makes name interactive again.
func (t *Table) Enable(name string) {
	if i, ok := t.index[name]; ok {
		t.rows[i].Busy = false
	}
}

// Apply records a result and re-enables the row. Results for names not in
// the table are ignored. A refresh result is ignored while the row is busy
// with a mutation, and when it was queried before the displayed status.
func (t *Table) Apply(r scheduler.Result) bool {
	i, ok := t.index[r.Service]
	if !ok {
		return false
	}
	row := &t.rows[i]
	if r.Verb == scheduler.VerbRefresh && (row.Busy || r.QueriedAt.Before(row.ObservedAt)) {
		return false
	}
	row.Status = r.Status
	row.PID = r.PID
	row.ObservedAt = r.QueriedAt
	if r.Verb != scheduler.VerbRefresh {
		row.LastOutput = r.Output
		row.LastErr = r.Err
	}
	t.Enable(r.Service)
	return true
}

// ToggleMark flips the selection of an idle row.
func (t *Table) ToggleMark(name string) {
	if i, ok := t.index[name]; ok && !t.rows[i].Busy {
		t.rows[i].Marked = !t.rows[i].Marked
	}
}

// Marked returns the names of marked rows in order.
func (t *Table) Marked() []string {
	var names []string
	for _, r := range t.rows {
		if r.Marked {
			names = append(names, r.Name)
		}
	}
	return names
}

// ClearMarks unmarks every row.
func (t *Table) ClearMarks() {
	for i := range t.rows {
		t.rows[i].Marked = false
	}
}

// Filter returns the rows whose name contains text. An empty text matches
// every row.
func (t *Table) Filter(text string) []Row {
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if strings.Contains(r.Name, text) {
			out = append(out, r)
		}
	}
	return out
}
