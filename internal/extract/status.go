package extract

import (
	"sync"

	"github.com/google/uuid"
)

// Status is the per-document extraction state machine:
// pending -> processing -> {completed | error}. Terminal states never regress.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusError:
		return 2
	}
	return -1
}

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// DocState is the visible status of one document in a batch.
type DocState struct {
	Status   Status
	Message  string
	ResultID uuid.UUID
}

// Board tracks per-document status for a batch. Updates are keyed by document
// ID and are idempotent replacements; a transition that would move a document
// backwards is refused.
type Board struct {
	mu   sync.Mutex
	docs map[string]DocState
}

func NewBoard() *Board {
	return &Board{docs: make(map[string]DocState)}
}

// set installs next unless it would regress the document's status.
func (b *Board) set(docID string, next DocState) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.docs[docID]
	if ok && next.Status.rank() < cur.Status.rank() {
		return false
	}
	if ok && cur.Status.Terminal() && next.Status != cur.Status {
		return false
	}
	b.docs[docID] = next
	return true
}

// Enqueue marks a document pending.
func (b *Board) Enqueue(docID string) bool {
	return b.set(docID, DocState{Status: StatusPending})
}

// Start marks a document processing.
func (b *Board) Start(docID string) bool {
	return b.set(docID, DocState{Status: StatusProcessing})
}

// Complete marks a document done and records its result.
func (b *Board) Complete(docID string, resultID uuid.UUID) bool {
	return b.set(docID, DocState{Status: StatusCompleted, ResultID: resultID})
}

// Fail marks a document failed with the error message shown to the user.
func (b *Board) Fail(docID, message string) bool {
	return b.set(docID, DocState{Status: StatusError, Message: message})
}

// Get returns the state of one document.
func (b *Board) Get(docID string) (DocState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.docs[docID]
	return st, ok
}

// Snapshot returns a copy of all tracked documents.
func (b *Board) Snapshot() map[string]DocState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]DocState, len(b.docs))
	for k, v := range b.docs {
		out[k] = v
	}
	return out
}
