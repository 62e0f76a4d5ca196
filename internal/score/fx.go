package score

import (
	"github.com/smallbiznis/kredible/internal/score/service"
	"go.uber.org/fx"
)

var Module = fx.Module("score.service",
	fx.Provide(service.NewRandomScorer),
	fx.Provide(service.New),
)
