// Package memory provides cross-task context retrieval and storage backed
// by the task store.
package memory

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ShayCichocki/euna/internal/store"
)

// Service is the memory collaborator contract consumed by the orchestrator
// and workflow manager.
type Service interface {
	// ContextFor returns a context blob relevant to the given input.
	ContextFor(ctx context.Context, input, taskID string) (string, error)
	// Store persists one piece of content for later retrieval.
	Store(ctx context.Context, content, entryType string, metadata map[string]any, taskID string) error
}

// recallLimit bounds how many recent entries feed a context blob.
const recallLimit = 5

// StoreBacked persists memory through the SQLite task store. A nil database
// degrades every operation to a no-op so callers never need to branch.
type StoreBacked struct {
	db *store.DB
}

// NewStoreBacked creates a store-backed memory service.
func NewStoreBacked(db *store.DB) *StoreBacked {
	return &StoreBacked{db: db}
}

// ContextFor assembles a context blob from recent memory entries, preferring
// entries that share words with the input.
func (m *StoreBacked) ContextFor(ctx context.Context, input, taskID string) (string, error) {
	if m.db == nil {
		return "", nil
	}

	entries, err := m.db.RecentMemory(50)
	if err != nil {
		return "", fmt.Errorf("recall memory: %w", err)
	}
	if len(entries) == 0 {
		return "", nil
	}

	words := tokenize(input)

	var relevant []string
	for _, entry := range entries {
		if len(relevant) >= recallLimit {
			break
		}
		if overlaps(tokenize(entry.Content), words) {
			relevant = append(relevant, entry.Content)
		}
	}

	// Nothing matched: fall back to the most recent entries.
	if len(relevant) == 0 {
		for _, entry := range entries {
			if len(relevant) >= recallLimit {
				break
			}
			relevant = append(relevant, entry.Content)
		}
	}

	log.Printf("[memory] recalled %d relevant entries for task %s", len(relevant), taskID)
	return strings.Join(relevant, "\n"), nil
}

// Store persists one memory entry.
func (m *StoreBacked) Store(ctx context.Context, content, entryType string, metadata map[string]any, taskID string) error {
	if m.db == nil {
		return nil
	}
	if entryType == "" {
		entryType = "general"
	}
	return m.db.StoreMemory(taskID, entryType, content, metadata)
}

func tokenize(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) >= 4 {
			words[strings.Trim(w, ".,!?:;\"'")] = true
		}
	}
	return words
}

func overlaps(a, b map[string]bool) bool {
	for w := range a {
		if b[w] {
			return true
		}
	}
	return false
}
