package ui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthdesk/internal/datatable"
)

func TestPrefsWriter_DebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_prefs.json")
	w := newPrefsWriter(path, 30*time.Millisecond, nil)

	for px := 200; px <= 260; px += 20 {
		w.UpdateTable(departmentsName, func(tp *TablePrefs) {
			tp.Widths = datatable.Widths{"name": px}
		})
	}
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing is written while updates keep coming")

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	reloaded := newPrefsWriter(path, time.Hour, nil)
	assert.Equal(t, 260, reloaded.Table(departmentsName).Widths["name"])
}

func TestPrefsWriter_FlushWritesImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ui_prefs.json")
	w := newPrefsWriter(path, time.Hour, nil)

	w.UpdateTable(patientsName, func(tp *TablePrefs) { tp.PageSize = 50 })
	require.NoError(t, w.Flush())

	reloaded := newPrefsWriter(path, time.Hour, nil)
	assert.Equal(t, 50, reloaded.Table(patientsName).PageSize)
	assert.Zero(t, reloaded.Table(departmentsName).PageSize)
}

func TestPrefsWriter_TableReturnsCopy(t *testing.T) {
	w := newPrefsWriter("", time.Hour, nil)
	w.UpdateTable(departmentsName, func(tp *TablePrefs) {
		tp.Widths = datatable.Widths{"name": 200}
	})

	got := w.Table(departmentsName)
	got.Widths["name"] = 999

	assert.Equal(t, 200, w.Table(departmentsName).Widths["name"])
}

func TestPrefsWriter_CorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	w := newPrefsWriter(path, time.Hour, nil)

	assert.Equal(t, TablePrefs{}, w.Table(departmentsName))
	w.UpdateTable(departmentsName, func(tp *TablePrefs) { tp.PageSize = 25 })
	require.NoError(t, w.Flush())
}

func TestDepartmentsPage_UsesStoredWidths(t *testing.T) {
	h := newHarness(t, 0, departmentsAPI(nil))
	h.deps.prefs.UpdateTable(departmentsName, func(tp *TablePrefs) {
		tp.Widths = datatable.Widths{"description": 400}
	})

	p := newDepartmentsPage(h.client, h.deps)

	assert.Equal(t, 400, p.table.Width("description"))
	assert.Equal(t, 180, p.table.Width("name"))
}
