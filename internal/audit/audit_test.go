package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibliotheque/internal/entities"
)

func TestArchiver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	archiver := NewArchiver(dir)

	t.Run("creates directory and writes events", func(t *testing.T) {
		events := []entities.AuditEvent{
			{ID: 1, Action: "loan_return", EventType: entities.AuditEventLoan},
			{ID: 2, Action: "user_toggle", EventType: entities.AuditEventUser},
		}

		filename, err := archiver.Archive(events)
		require.NoError(t, err)
		assert.Contains(t, filename, ".json")

		content, err := os.ReadFile(filepath.Join(dir, filename))
		require.NoError(t, err)

		var saved archive
		require.NoError(t, json.Unmarshal(content, &saved))
		assert.Equal(t, 2, saved.Count)
		require.Len(t, saved.Events, 2)
		assert.Equal(t, "user_toggle", saved.Events[1].Action)
	})

	t.Run("unique filenames", func(t *testing.T) {
		events := []entities.AuditEvent{{ID: 3, Action: "book_delete"}}

		first, err := archiver.Archive(events)
		require.NoError(t, err)
		second, err := archiver.Archive(events)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("empty batch writes nothing", func(t *testing.T) {
		empty := NewArchiver(filepath.Join(t.TempDir(), "never"))
		filename, err := empty.Archive(nil)
		require.NoError(t, err)
		assert.Empty(t, filename)
		_, err = os.Stat(empty.Dir)
		assert.True(t, os.IsNotExist(err))
	})
}
