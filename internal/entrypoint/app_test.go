package entrypoint

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Database: config.Database{
			Driver: config.DatabaseDriverSQLite,
			Path:   filepath.Join(dir, "library.db"),
		},
		Uploads: config.Uploads{
			ImageDir: filepath.Join(dir, "images"),
			PDFDir:   filepath.Join(dir, "pdf"),
		},
		Library: config.Library{
			BaseURL:       "http://localhost",
			ResetTokenTTL: time.Hour,
		},
		Auth: config.Auth{
			Mode:          config.AuthModeLocal,
			SessionSecret: "00112233445566778899aabbccddeeff",
			BcryptCost:    4,
		},
	}
}

func TestBuild(t *testing.T) {
	app, err := Build(testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, app.Secret)

	admin, err := app.Auth.CreateUser(auth.NewUser{
		Email:    "admin@example.com",
		Password: "un-mot-de-passe-solide",
		LastName: "Admin",
		Role:     entities.UserRoleAdmin,
	})
	require.NoError(t, err)

	// Services share the database: a reminder scan over no loans succeeds.
	result, err := app.Reminders.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Scanned)

	user, err := app.AccountService.Get(admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := Build(cfg)

	assert.Error(t, err)
}

func TestSessionDB_SQLiteUsesMainDatabase(t *testing.T) {
	app, err := Build(testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	sessionDB, closeSessions, err := app.SessionDB()
	require.NoError(t, err)
	defer closeSessions()

	mainDB, err := app.Database.DB.DB()
	require.NoError(t, err)
	assert.Same(t, mainDB, sessionDB)
}

func TestSessionsPath(t *testing.T) {
	assert.Equal(t, "data/library-sessions.db", sessionsPath("data/library.db"))
	assert.Equal(t, "library-sessions", sessionsPath("library"))
}

func TestSessionSecret(t *testing.T) {
	raw, err := sessionSecret(config.Auth{SessionSecret: "not hex at all"})
	require.NoError(t, err)
	assert.Equal(t, []byte("not hex at all"), raw)

	generated, err := sessionSecret(config.Auth{})
	require.NoError(t, err)
	assert.Len(t, generated, 32)
}
