package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetGlobalStats(c *gin.Context) {
	resp, err := s.statsSvc.Global(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.ok(c, "Stats retrieved successfully", resp)
}

func (s *Server) GetUsageStats(c *gin.Context) {
	resp, err := s.statsSvc.Usage(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.ok(c, "Usage stats retrieved successfully", resp)
}

func (s *Server) GetRevenueStats(c *gin.Context) {
	resp, err := s.statsSvc.Revenue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.ok(c, "Revenue stats retrieved successfully", resp)
}

func (s *Server) GetPlatformStats(c *gin.Context) {
	resp, err := s.statsSvc.Platform(c.Request.Context(), strings.TrimSpace(c.Param("platformId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.ok(c, "Platform stats retrieved successfully", resp)
}
