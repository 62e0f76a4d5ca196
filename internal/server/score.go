package server

import (
	"github.com/gin-gonic/gin"
	scoredomain "github.com/smallbiznis/kredible/internal/score/domain"
)

func (s *Server) GetScore(c *gin.Context) {
	platform, ok := platformFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	res, err := s.scoreSvc.Lookup(c.Request.Context(), scoredomain.LookupRequest{
		PlatformID:    platform.ID,
		PlanType:      platform.PlanType,
		WalletAddress: c.Param("walletAddress"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ok(c, "Score retrieved successfully", res)
}
