package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type saveSettingRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// GetSettings serves every stored setting as one mapping. With ?key=... it
// serves a single value instead.
func (s *Server) GetSettings(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key != "" {
		value, err := s.settingsSvc.Get(c.Request.Context(), key)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"settings": gin.H{key: value},
		})
		return
	}

	all, err := s.settingsSvc.All(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"settings": all,
	})
}

func (s *Server) SaveSetting(c *gin.Context) {
	var req saveSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.settingsSvc.Save(c.Request.Context(), strings.TrimSpace(req.Key), req.Value); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     strings.TrimSpace(req.Key),
	})
}
