package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mrlokans/bibliotheque/internal/audit"
	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/entrypoint"
)

// PurgeAuditCommand deletes audit events past retention, archiving them
// first when an archive directory is set.
type PurgeAuditCommand struct {
	RetentionDays int
	ArchiveDir    string
}

func NewPurgeAuditCommand() *PurgeAuditCommand {
	return &PurgeAuditCommand{}
}

func (cmd *PurgeAuditCommand) ParseFlags(args []string) error {
	cfg := config.NewConfig()
	fs := flag.NewFlagSet("purge-audit", flag.ExitOnError)

	fs.IntVar(&cmd.RetentionDays, "days", cfg.Audit.RetentionDays, "Keep events younger than this many days")
	fs.StringVar(&cmd.ArchiveDir, "archive-dir", cfg.Audit.ArchiveDir, "Write purged events here as JSON (empty disables)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s purge-audit [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete old audit events.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.RetentionDays <= 0 {
		return fmt.Errorf("-days must be positive")
	}
	return nil
}

func (cmd *PurgeAuditCommand) Run() error {
	app, err := entrypoint.Build(config.NewConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	retention := time.Duration(cmd.RetentionDays) * 24 * time.Hour

	if cmd.ArchiveDir != "" {
		events, err := app.Auditor.EventsOlderThan(retention)
		if err != nil {
			return fmt.Errorf("failed to list old events: %w", err)
		}
		name, err := audit.NewArchiver(cmd.ArchiveDir).Archive(events)
		if err != nil {
			return fmt.Errorf("failed to archive events, nothing deleted: %w", err)
		}
		if name != "" {
			fmt.Printf("Archived %d events to %s\n", len(events), name)
		}
	}

	deleted, err := app.Auditor.DeleteOldEvents(retention)
	if err != nil {
		return fmt.Errorf("failed to delete old events: %w", err)
	}
	fmt.Printf("Deleted %d audit events older than %d days\n", deleted, cmd.RetentionDays)
	return nil
}
