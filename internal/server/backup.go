package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/printpixel/core/internal/backup"
)

type restoreRequest struct {
	Key string `json:"key"`
}

func (s *Server) CreateBackup(c *gin.Context) {
	key, err := s.backupSvc.Create(c.Request.Context(), backup.KindManual)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     key,
	})
}

func (s *Server) ListBackups(c *gin.Context) {
	backups, err := s.backupSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"backups": backups,
	})
}

func (s *Server) RestoreBackup(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	key := strings.TrimSpace(req.Key)
	if err := s.backupSvc.Restore(c.Request.Context(), key); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     key,
	})
}

// ExportStore streams the whole store as a downloadable snapshot document.
func (s *Server) ExportStore(c *gin.Context) {
	filename, data, err := s.backupSvc.Export(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// ImportStore replaces the whole store with an uploaded snapshot document.
func (s *Server) ImportStore(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 64<<20))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.backupSvc.Import(c.Request.Context(), data); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}
