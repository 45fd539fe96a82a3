package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/hashi/internal/command"
	"github.com/alexanderramin/hashi/internal/db"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	at := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	return NewSQLiteJournal(database, func() time.Time { return at })
}

func TestSQLiteJournal_RecordAndList(t *testing.T) {
	journal := newTestJournal(t)
	ctx := context.Background()

	cmd := command.Command{
		Intent: "add_task",
		Sheet:  "タスク管理",
		Body: map[string]string{
			command.FieldContent:  "資料作成",
			command.FieldAssignee: "山田",
		},
	}
	require.NoError(t, journal.Record(ctx, "caller-1", cmd, 200))
	require.NoError(t, journal.Record(ctx, "caller-1", cmd, 200))
	require.NoError(t, journal.Record(ctx, "caller-2", cmd, 500))

	entries, err := journal.ListByCaller(ctx, "caller-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "caller-1", first.CallerID)
	assert.Equal(t, "add_task", first.Intent)
	assert.Equal(t, "山田", first.Body[command.FieldAssignee])
	assert.Equal(t, 200, first.SinkStatus)
	assert.Equal(t, 2025, first.CreatedAt.Year())
}

func TestSQLiteJournal_ListByCaller_Empty(t *testing.T) {
	journal := newTestJournal(t)

	entries, err := journal.ListByCaller(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
