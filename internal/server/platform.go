package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
)

func (s *Server) CreatePlatform(c *gin.Context) {
	var req platformdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.platformSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.created(c, "Platform created successfully", resp)
}

func (s *Server) ListPlatformsByOwner(c *gin.Context) {
	var query struct {
		OwnerAddress string `form:"ownerAddress" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.platformSvc.ListByOwner(c.Request.Context(), query.OwnerAddress)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ok(c, "Platforms retrieved successfully", resp)
}

func (s *Server) GetPlatformUsage(c *gin.Context) {
	platform, ok := platformFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	usage, err := s.planSvc.GetUsage(c.Request.Context(), platform.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ok(c, "Usage retrieved successfully", usage)
}

func (s *Server) GetAPIKey(c *gin.Context) {
	var req platformdomain.APIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.platformSvc.GetAPIKey(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ok(c, "API key retrieved successfully", resp)
}

func (s *Server) GetAPIKeyByPlatformID(c *gin.Context) {
	resp, err := s.platformSvc.GetAPIKeyByID(c.Request.Context(), strings.TrimSpace(c.Param("platformId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ok(c, "API key retrieved successfully", resp)
}

func (s *Server) UpdatePlatform(c *gin.Context) {
	var req platformdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.platformSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("platformId")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ok(c, "Platform updated successfully", resp)
}
