package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves a built frontend when one is configured. Unknown /api
// routes always answer with a JSON 404.
func (s *Server) mountStatic() {
	indexPath := ""
	if dir := s.opts.StaticDir; dir == "" {
		s.logger.Info("static directory not configured; API only mode")
	} else if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", "path", dir, "error", err)
	} else {
		candidate := filepath.Join(dir, "index.html")
		if _, err := os.Stat(candidate); err != nil {
			s.logger.Warn("index.html not found", "path", candidate, "error", err)
		} else {
			indexPath = candidate
			s.engine.GET("/", func(c *gin.Context) { c.File(indexPath) })
		}
		if assets := filepath.Join(dir, "assets"); isDir(assets) {
			s.engine.StaticFS("/assets", gin.Dir(assets, false))
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		if indexPath == "" || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.File(indexPath)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
