package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ActionLog records who performed a timetable write once the request succeeds.
func ActionLog(l *zap.Logger, action string) gin.HandlerFunc {
	if l == nil {
		l = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
		}
		if value, ok := c.Get(ContextUserKey); ok {
			if claims, ok := value.(*models.JWTClaims); ok {
				fields = append(fields,
					zap.String("user_id", claims.UserID),
					zap.String("school_id", claims.SchoolID),
					zap.String("role", string(claims.Role)),
				)
			}
		}
		if classID := c.Param("classId"); classID != "" {
			fields = append(fields, zap.String("class_id", classID))
		}
		l.Info("timetable action", fields...)
	}
}
