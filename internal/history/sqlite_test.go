package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/schema"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResult(name string, ts time.Time) extract.Result {
	return extract.Result{
		ID:        uuid.New(),
		FileID:    uuid.NewString(),
		FileName:  name,
		Timestamp: ts,
		Schema: []schema.Field{
			{ID: "f1", Name: "total", Type: schema.TypeNumber},
			{ID: "f2", Name: "items", Type: schema.TypeArrayOfObjects, Children: []schema.Field{
				{ID: "f3", Name: "desc", Type: schema.TypeString},
			}},
		},
		Data: map[string]any{
			"total": 42.5,
			"items": []any{map[string]any{"desc": "A"}},
		},
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	older := sampleResult("older.png", base)
	newer := sampleResult("newer.png", base.Add(time.Hour))
	require.NoError(t, s.Append(ctx, older))
	require.NoError(t, s.Append(ctx, newer))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// most recent first
	assert.Equal(t, "newer.png", got[0].FileName)
	assert.Equal(t, "older.png", got[1].FileName)

	assert.Equal(t, older.ID, got[1].ID)
	assert.True(t, got[1].Timestamp.Equal(older.Timestamp))
	assert.Equal(t, older.Schema, got[1].Schema)
	assert.Equal(t, older.Data, got[1].Data)
}

func TestSQLiteOrdersWithinTheSameSecond(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// 500ms vs 520ms into the same second: RFC3339Nano would encode these as
	// "...00.5Z" and "...00.52Z", which sort backwards as text.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	older := sampleResult("older.png", base.Add(500*time.Millisecond))
	newer := sampleResult("newer.png", base.Add(520*time.Millisecond))
	require.NoError(t, s.Append(ctx, older))
	require.NoError(t, s.Append(ctx, newer))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer.png", got[0].FileName)
	assert.Equal(t, "older.png", got[1].FileName)
}

func TestSQLiteReplaceAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Append(ctx, sampleResult("a.png", base)))
	require.NoError(t, s.Append(ctx, sampleResult("b.png", base.Add(time.Minute))))

	replacement := sampleResult("only.png", base.Add(2*time.Minute))
	require.NoError(t, s.ReplaceAll(ctx, []extract.Result{replacement}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "only.png", got[0].FileName)
}

func TestSQLiteClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleResult("a.png", time.Now().UTC())))
	require.NoError(t, s.Clear(ctx))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteEmptyLoad(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
