package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/bibliotheque/internal/entities"
)

// Archiver writes audit events to JSON files before retention removes them
// from the database.
type Archiver struct {
	Dir string
}

func NewArchiver(dir string) *Archiver {
	return &Archiver{Dir: dir}
}

type archive struct {
	ArchivedAt time.Time             `json:"archived_at"`
	Count      int                   `json:"count"`
	Events     []entities.AuditEvent `json:"events"`
}

// Archive saves events to a file named after a random UUID and returns the
// file name. An empty batch writes nothing.
func (a *Archiver) Archive(events []entities.AuditEvent) (string, error) {
	if len(events) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	filename := fmt.Sprintf("audit-%s-%s.json", time.Now().Format("20060102"), uuid.New().String())
	path := filepath.Join(a.Dir, filename)

	data, err := json.MarshalIndent(archive{
		ArchivedAt: time.Now().UTC(),
		Count:      len(events),
		Events:     events,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal audit events: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audit archive: %w", err)
	}

	log.Printf("Archived %d audit events to %s", len(events), path)
	return filename, nil
}
