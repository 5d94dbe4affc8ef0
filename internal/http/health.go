package http

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/uploads"
)

const healthPingTimeout = 2 * time.Second

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports whether the database answers and the upload
// directories are usable.
type HealthController struct {
	db      *database.Database
	store   *uploads.Store
	version string
}

func NewHealthController(db *database.Database, store *uploads.Store, version string) *HealthController {
	return &HealthController{db: db, store: store, version: version}
}

// Status runs the checks. Only a failing database makes the service
// unhealthy; a missing upload directory is created on the first upload.
// GET /health
func (h *HealthController) Status(c *gin.Context) {
	checks := map[string]string{"database": h.checkDatabase(c.Request.Context())}
	healthy := checks["database"] == "ok" || checks["database"] == "not configured"

	if h.store != nil {
		checks["uploads_images"] = checkDir(h.store.Dir(uploads.KindImage))
		checks["uploads_pdf"] = checkDir(h.store.Dir(uploads.KindPDF))
	}

	resp := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}
	code := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, resp)
}

func (h *HealthController) checkDatabase(ctx context.Context) string {
	if h.db == nil {
		return "not configured"
	}
	sqlDB, err := h.db.DB.DB()
	if err != nil {
		return "error: " + err.Error()
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func checkDir(dir string) string {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return "missing"
	case err != nil:
		return "error: " + err.Error()
	case !info.IsDir():
		return "error: not a directory"
	}
	return "ok"
}
