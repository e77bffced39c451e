package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rkechols/bulk-sms/internal/handlers"
	"github.com/rkechols/bulk-sms/internal/middleware"
	"github.com/rkechols/bulk-sms/internal/services"
)

// SetupRouter wires the gateway routes around an already-open SMS service.
func SetupRouter(svc services.SMSServiceInterface) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler()
	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/callback", authHandler.Callback)
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware())
	{
		smsHandler := handlers.NewSMSHandler(svc)
		v1.POST("/sms/send", smsHandler.SendSMS)
		v1.GET("/devices", smsHandler.ListDevices)
		v1.GET("/recipients/example", smsHandler.ExampleRecipients)
	}

	return r
}
