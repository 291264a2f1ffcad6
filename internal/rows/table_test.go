package rows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrainStation-23/serman/internal/scheduler"
	"github.com/BrainStation-23/serman/internal/service"
)

func newTable() *Table {
	return New(service.Snapshot{
		{Name: "S1", Status: "active", PID: "100"},
		{Name: "S12", Status: "inactive"},
		{Name: "S2", Status: "failed"},
	})
}

func TestTable_DisableRejectsBusyRow(t *testing.T) {
	tbl := newTable()

	assert.True(t, tbl.Disable("S1"))
	assert.False(t, tbl.Disable("S1"), "second operation on a busy row must be refused")
	assert.False(t, tbl.Disable("S404"))

	row, ok := tbl.Get("S1")
	require.True(t, ok)
	assert.True(t, row.Busy)

	tbl.Enable("S1")
	assert.True(t, tbl.Disable("S1"))
}

func TestTable_ApplyUpdatesAndEnables(t *testing.T) {
	tbl := newTable()
	require.True(t, tbl.Disable("S12"))

	applied := tbl.Apply(scheduler.Result{Service: "S12", Verb: scheduler.VerbStart, Status: "active", PID: "321", Output: "ok"})
	assert.True(t, applied)

	row, _ := tbl.Get("S12")
	assert.Equal(t, Row{Name: "S12", Status: "active", PID: "321", LastOutput: "ok"}, row)
}

func TestTable_RefreshDoesNotOverrideBusyRow(t *testing.T) {
	tbl := newTable()
	require.True(t, tbl.Disable("S1"))

	assert.False(t, tbl.Apply(scheduler.Result{Service: "S1", Verb: scheduler.VerbRefresh, Status: "inactive"}))
	row, _ := tbl.Get("S1")
	assert.True(t, row.Busy)
	assert.Equal(t, "active", row.Status)

	assert.True(t, tbl.Apply(scheduler.Result{Service: "S2", Verb: scheduler.VerbRefresh, Status: "active", PID: "7"}))
}

func TestTable_ApplyIgnoresUnknownService(t *testing.T) {
	tbl := newTable()
	assert.False(t, tbl.Apply(scheduler.Result{Service: "S9", Status: "active"}))
	assert.Equal(t, 3, tbl.Len())
}

func TestTable_Marks(t *testing.T) {
	tbl := newTable()

	tbl.ToggleMark("S1")
	tbl.ToggleMark("S2")
	assert.Equal(t, []string{"S1", "S2"}, tbl.Marked())

	require.True(t, tbl.Disable("S1"))
	assert.Equal(t, []string{"S2"}, tbl.Marked(), "disabling a row drops its mark")

	tbl.ToggleMark("S1")
	assert.Equal(t, []string{"S2"}, tbl.Marked(), "busy rows cannot be marked")

	tbl.ClearMarks()
	assert.Empty(t, tbl.Marked())
}

func TestTable_Filter(t *testing.T) {
	tbl := newTable()

	tests := []struct {
		text string
		want []string
	}{
		{"", []string{"S1", "S12", "S2"}},
		{"S1", []string{"S1", "S12"}},
		{"2", []string{"S12", "S2"}},
		{"active", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var names []string
			for _, r := range tbl.Filter(tt.text) {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestTable_ResetDropsDuplicates(t *testing.T) {
	tbl := New(service.Snapshot{{Name: "S1"}, {Name: "S1", Status: "active"}, {Name: "S3"}})
	assert.Equal(t, []string{"S1", "S3"}, tbl.Names())
}

func TestTable_ResetKeepsBusyRows(t *testing.T) {
	tbl := newTable()
	require.True(t, tbl.Disable("S1"))
	tbl.ToggleMark("S2")

	tbl.Reset(service.Snapshot{{Name: "S1", Status: "activating"}, {Name: "S2"}})

	row, _ := tbl.Get("S1")
	assert.True(t, row.Busy, "operation still in flight")
	assert.False(t, tbl.Disable("S1"))
	assert.Empty(t, tbl.Marked())

	assert.True(t, tbl.Apply(scheduler.Result{Service: "S1", Verb: scheduler.VerbStart, Status: "active"}))
	assert.True(t, tbl.Disable("S1"))

	tbl.Reset(service.Snapshot{{Name: "S2"}})
	tbl.Reset(service.Snapshot{{Name: "S1"}})
	row, _ = tbl.Get("S1")
	assert.False(t, row.Busy, "busy state does not survive the service leaving the table")
}

func TestTable_StaleRefreshIgnored(t *testing.T) {
	tbl := newTable()
	refreshedAt := time.Now()
	mutatedAt := refreshedAt.Add(time.Second)

	require.True(t, tbl.Disable("S1"))
	require.True(t, tbl.Apply(scheduler.Result{Service: "S1", Verb: scheduler.VerbStop, Status: "inactive", QueriedAt: mutatedAt}))

	assert.False(t, tbl.Apply(scheduler.Result{Service: "S1", Verb: scheduler.VerbRefresh, Status: "active", PID: "100", QueriedAt: refreshedAt}))
	row, _ := tbl.Get("S1")
	assert.Equal(t, "inactive", row.Status)
	assert.Empty(t, row.PID)

	assert.True(t, tbl.Apply(scheduler.Result{Service: "S1", Verb: scheduler.VerbRefresh, Status: "active", PID: "200", QueriedAt: mutatedAt.Add(time.Second)}))
	row, _ = tbl.Get("S1")
	assert.Equal(t, "active", row.Status)
}
