package middlewares

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cleanshift/utils"
)

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// websocket URLs carry the token in the query
		if raw != "" && !strings.HasPrefix(path, "/ws/") {
			path = path + "?" + raw
		}

		entry := utils.InfoLogger.WithFields(logrus.Fields{
			"client_ip": c.ClientIP(),
			"user_id":   c.GetUint("user_id"),
		})
		if status >= 500 {
			entry.Errorf("%s | %3d | %13v | %s", c.Request.Method, status, latency, path)
			return
		}
		entry.Infof("%s | %3d | %13v | %s", c.Request.Method, status, latency, path)
	}
}
