package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/entrypoint"
)

// SendRemindersCommand runs one overdue scan in the foreground, for use
// from an external cron when the server's scheduler is disabled.
type SendRemindersCommand struct {
	Timeout time.Duration
}

func NewSendRemindersCommand() *SendRemindersCommand {
	return &SendRemindersCommand{}
}

func (cmd *SendRemindersCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("send-reminders", flag.ExitOnError)

	fs.DurationVar(&cmd.Timeout, "timeout", 10*time.Minute, "Abort the scan after this long")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s send-reminders [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Notify the borrowers of overdue loans and exit.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *SendRemindersCommand) Run() error {
	app, err := entrypoint.Build(config.NewConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	result, err := app.Reminders.Run(ctx)
	if err != nil {
		return fmt.Errorf("reminder scan failed: %w", err)
	}

	fmt.Printf("Overdue loans scanned: %d, reminded: %d, emails failed: %d\n",
		result.Scanned, result.Notified, result.MailFailed)
	return nil
}
