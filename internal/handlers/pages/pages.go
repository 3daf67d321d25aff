// internal/handlers/pages/pages.go
package pages

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"frontdesk-gateway/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// fallbackShell is served when no built frontend is present.
const fallbackShell = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Frontdesk</title></head>
<body><div id="root"></div></body>
</html>
`

// PagesHandler serves static assets and the single-page app shell. Page
// gating happens earlier in the route guard.
type PagesHandler struct {
	staticDir string
}

func NewPagesHandler(staticDir string) *PagesHandler {
	return &PagesHandler{staticDir: staticDir}
}

// Serve answers any GET that no API route claimed.
func (h *PagesHandler) Serve(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") || path == "/api" {
		response.Error(c, http.StatusNotFound, "route not found", nil)
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		response.Error(c, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	if file, ok := h.asset(path); ok {
		c.File(file)
		return
	}

	if index, ok := h.asset("/index.html"); ok {
		c.Header("Cache-Control", "no-cache")
		c.File(index)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fallbackShell))
}

// asset resolves path inside the static directory, never outside it.
func (h *PagesHandler) asset(path string) (string, bool) {
	if h.staticDir == "" {
		return "", false
	}
	full := filepath.Join(h.staticDir, filepath.FromSlash(filepath.Clean("/"+path)))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}
