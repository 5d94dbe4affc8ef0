package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/entrypoint"
)

// CreateAdminCommand creates an administrator account from the command line.
type CreateAdminCommand struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func NewCreateAdminCommand() *CreateAdminCommand {
	return &CreateAdminCommand{}
}

func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)

	fs.StringVar(&cmd.Email, "email", "", "Administrator email (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password, at least 12 characters (required)")
	fs.StringVar(&cmd.FirstName, "first-name", "", "First name")
	fs.StringVar(&cmd.LastName, "last-name", "Administrateur", "Last name")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin -email EMAIL -password PASSWORD [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an administrator account in the configured database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Email == "" || cmd.Password == "" {
		fs.Usage()
		return fmt.Errorf("-email and -password are required")
	}
	return nil
}

func (cmd *CreateAdminCommand) Run() error {
	app, err := entrypoint.Build(config.NewConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	user, err := app.Auth.CreateUser(auth.NewUser{
		Email:     cmd.Email,
		Password:  cmd.Password,
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		Role:      entities.UserRoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to create administrator: %w", err)
	}

	fmt.Printf("Administrator %s created (id %d)\n", user.Email, user.ID)
	return nil
}
