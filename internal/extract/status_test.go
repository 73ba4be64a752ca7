package extract

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardHappyPath(t *testing.T) {
	b := NewBoard()
	rid := uuid.New()

	assert.True(t, b.Enqueue("d1"))
	assert.True(t, b.Start("d1"))
	assert.True(t, b.Complete("d1", rid))

	st, ok := b.Get("d1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, rid, st.ResultID)
}

func TestBoardRefusesRegression(t *testing.T) {
	b := NewBoard()
	b.Enqueue("d1")
	b.Start("d1")

	assert.False(t, b.Enqueue("d1"))
	st, _ := b.Get("d1")
	assert.Equal(t, StatusProcessing, st.Status)
}

func TestBoardTerminalStatesAreSticky(t *testing.T) {
	b := NewBoard()
	b.Enqueue("d1")
	b.Start("d1")
	require.True(t, b.Fail("d1", "boom"))

	assert.False(t, b.Start("d1"))
	assert.False(t, b.Complete("d1", uuid.New()))
	st, _ := b.Get("d1")
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, "boom", st.Message)
}

func TestBoardUnknownDocument(t *testing.T) {
	b := NewBoard()
	_, ok := b.Get("nope")
	assert.False(t, ok)
}

func TestBoardSnapshotIsACopy(t *testing.T) {
	b := NewBoard()
	b.Enqueue("d1")
	snap := b.Snapshot()
	snap["d1"] = DocState{Status: StatusError}

	st, _ := b.Get("d1")
	assert.Equal(t, StatusPending, st.Status)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusError.Terminal())
}
