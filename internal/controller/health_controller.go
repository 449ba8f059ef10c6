package controller

import (
	"net/http"

	"corp_learning_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SessionCounter 当前内存中的作答会话数
type SessionCounter interface {
	ActiveSessions() int
}

type HealthController struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Sessions SessionCounter
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, sessions SessionCounter) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Sessions: sessions}
}

// @Summary 健康检查
// @Description 检查数据库与缓存连接状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.PingContext(ctx.Request.Context()); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up", "redis": "disabled"}
	if c.Redis != nil {
		components["redis"] = "up"
		if err := c.Redis.Ping(ctx.Request.Context()).Err(); err != nil {
			// 缓存不可用时降级为直读数据库，不影响整体可用性
			components["redis"] = "down"
		}
	}

	data := gin.H{
		"status":     "ok",
		"components": components,
	}
	if c.Sessions != nil {
		data["activeSessions"] = c.Sessions.ActiveSessions()
	}
	util.Success(ctx, data)
}
