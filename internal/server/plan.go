package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	"github.com/smallbiznis/kredible/internal/scheduler"
)

func (s *Server) ListPlanCatalog(c *gin.Context) {
	s.ok(c, "Plans retrieved successfully", s.planSvc.Catalog())
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req plandomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	ctx := c.Request.Context()
	platform, err := s.platformSvc.GetByID(ctx, req.PlatformID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if platform == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	plan, err := s.planSvc.CreatePlan(ctx, platform.ID, req.PlanType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.created(c, "Plan created successfully", plan)
}

// GetPlan answers with null data when the platform has no plan.
func (s *Server) GetPlan(c *gin.Context) {
	plan, err := s.planSvc.GetPlan(c.Request.Context(), strings.TrimSpace(c.Param("platformId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if plan == nil {
		s.ok(c, "Plan not found", plan)
		return
	}

	s.ok(c, "Plan retrieved successfully", plan)
}

func (s *Server) ChangePlan(c *gin.Context) {
	var req plandomain.ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	ctx := c.Request.Context()
	platformID := strings.TrimSpace(c.Param("platformId"))
	if _, err := s.platformSvc.ChangePlan(ctx, platformID, req.PlanType); err != nil {
		AbortWithError(c, err)
		return
	}

	plan, err := s.planSvc.GetPlan(ctx, platformID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ok(c, "Plan updated successfully", plan)
}

func (s *Server) ResetPlans(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		reset int
		err   error
	)
	if s.scheduler != nil {
		reset, err = s.scheduler.ResetQuotas(ctx, scheduler.TriggerManual)
	} else {
		reset, err = s.planSvc.ResetMonthlyQueries(ctx)
		s.obsMetrics.RecordPlanReset(ctx, scheduler.TriggerManual, reset)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ok(c, "Monthly queries reset successfully", plandomain.ResetResult{PlansReset: reset})
}
