package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// CORS wraps the rs/cors handler as gin middleware. Scenario runs are
// triggered from local dashboards, so the policy stays permissive.
func CORS() gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return func(g *gin.Context) {
		c.HandlerFunc(g.Writer, g.Request)
		if g.Request.Method == "OPTIONS" {
			g.AbortWithStatus(204)
			return
		}
		g.Next()
	}
}
