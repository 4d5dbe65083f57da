package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/orris-inc/billing/docs"
	"github.com/orris-inc/billing/internal/interfaces/http/middleware"
	"github.com/orris-inc/billing/internal/shared/id"
	"github.com/orris-inc/billing/internal/shared/utils"
)

func newRouter(c *Container) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.Recovery(c.log),
		middleware.Logger(c.log.Named("http"), "/healthz", "/metrics"),
		middleware.Metrics(c.metrics),
	)

	engine.GET("/healthz", c.healthz)
	engine.GET("/metrics", gin.WrapH(c.metrics.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := engine.Group("/api/v1")
	if limit := c.cfg.Server.RateLimitPerMinute; limit > 0 {
		v1.Use(middleware.NewRateLimiter(c.redis, limit, time.Minute, c.log.Named("ratelimit")).Limit())
	}
	{
		subs := v1.Group("/subscriptions/:sid", middleware.RequireSID("sid", id.PrefixSubscription))
		subs.POST("/plan-changes", c.planChangeHandler.Schedule)
		subs.POST("/plan-changes/immediate", c.planChangeHandler.InitiateImmediate)
		subs.GET("/plan-changes/preview", c.planChangeHandler.Preview)
		subs.POST("/reactivate", c.planChangeHandler.Reactivate)

		changes := v1.Group("/plan-changes/:sid", middleware.RequireSID("sid", id.PrefixPlanChange))
		changes.POST("/complete", c.planChangeHandler.Complete)
		changes.DELETE("", c.planChangeHandler.Cancel)
	}

	return engine
}

// healthz reports whether the database and Redis answer.
func (c *Container) healthz(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"database": "ok", "redis": "ok"}
	healthy := true

	if sqlDB, err := c.db.DB(); err != nil || sqlDB.PingContext(checkCtx) != nil {
		status["database"] = "unavailable"
		healthy = false
	}
	if err := c.redis.Ping(checkCtx).Err(); err != nil {
		status["redis"] = "unavailable"
		healthy = false
	}

	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, utils.APIResponse{Success: false, Data: status, Message: "degraded"})
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "ok", status)
}
