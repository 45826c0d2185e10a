package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/labourline/internal/api/handlers"
	"github.com/yoockh/labourline/internal/api/middleware"
)

type Deps struct {
	IVR *handlers.IVRHandler
	Ops *handlers.OpsHandler
	WS  *handlers.WSHandler

	JWT middleware.JWTConfig
	// WebhookAuthToken enables provider signature checks on /ivr when set.
	WebhookAuthToken string
	PublicBaseURL    string
	// AudioDir serves prompt files under /Audio when set.
	AudioDir string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	if d.AudioDir != "" {
		r.Static("/Audio", d.AudioDir)
	}

	// Voice provider webhooks
	ivr := r.Group("/ivr")
	if d.WebhookAuthToken != "" {
		ivr.Use(middleware.TwilioSignature(d.WebhookAuthToken, d.PublicBaseURL))
	}
	ivr.POST("/welcome", d.IVR.Welcome)
	ivr.POST("/language", d.IVR.Language)
	ivr.POST("/purpose", d.IVR.Purpose)
	ivr.POST("/record/:field", d.IVR.Record)
	ivr.POST("/recording-status", d.IVR.RecordingStatus)
	ivr.POST("/status", d.IVR.Status)

	// Operator routes (JWT + admin)
	if d.Ops != nil {
		ops := r.Group("/ops")
		ops.Use(middleware.JWTAuth(d.JWT), middleware.RequireAdmin())
		ops.GET("/pipeline-failures", d.Ops.ListFailures)
		ops.POST("/pipeline-failures/:id/replay", d.Ops.ReplayFailure)
	}

	// WebSocket
	if d.WS != nil {
		r.GET("/ws/call-events", d.WS.CallEvents)
	}
}
