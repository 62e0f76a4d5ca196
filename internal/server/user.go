package server

import (
	"github.com/gin-gonic/gin"
	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
)

func (s *Server) CreateUser(c *gin.Context) {
	var req userdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	user, err := s.userSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.created(c, "User created successfully", user)
}

func (s *Server) GetUser(c *gin.Context) {
	user, err := s.userSvc.GetByWalletAddress(c.Request.Context(), c.Param("walletAddress"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if user == nil {
		AbortWithError(c, userdomain.ErrNotFound)
		return
	}

	s.ok(c, "User retrieved successfully", user)
}

func (s *Server) UpdateUser(c *gin.Context) {
	var req userdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	user, err := s.userSvc.Update(c.Request.Context(), c.Param("walletAddress"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ok(c, "User updated successfully", user)
}

func (s *Server) AddUserDocument(c *gin.Context) {
	var req userdomain.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	doc, err := s.userSvc.AddDocument(c.Request.Context(), c.Param("walletAddress"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.created(c, "Document added successfully", doc)
}

func (s *Server) ListUserActivity(c *gin.Context) {
	activity, err := s.userSvc.ListActivity(c.Request.Context(), c.Param("walletAddress"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ok(c, "Activity retrieved successfully", activity)
}

func (s *Server) AddUserActivity(c *gin.Context) {
	var req userdomain.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	activity, err := s.userSvc.AddActivity(c.Request.Context(), c.Param("walletAddress"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.created(c, "Activity added successfully", activity)
}
