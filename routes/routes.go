package routes

import (
	"os"
	"strings"

	"estetica-voice-backend/config"
	"estetica-voice-backend/controllers"
	"estetica-voice-backend/services"
	"estetica-voice-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(flow *services.CallFlow) *gin.Engine {
	r := gin.Default()

	origins := []string{"http://localhost:3000"}
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	// Twilio webhooks; callers are identified by CallSid, no auth here
	voiceController := controllers.NewVoiceController(flow)
	voice := r.Group("/voice")
	{
		voice.POST("/incoming", voiceController.Incoming)
		voice.POST("/turn", voiceController.Turn)
		voice.POST("/status", voiceController.Status)
	}

	auth := r.Group("/auth")
	{
		auth.POST("/token", controllers.Token)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		products := api.Group("/products")
		{
			products.POST("", controllers.CreateProduct)
			products.GET("", controllers.GetProducts)
			products.GET("/:id", controllers.GetProduct)
			products.PUT("/:id", controllers.UpdateProduct)
		}

		api.GET("/appointments", controllers.GetAppointments)

		calls := api.Group("/calls")
		{
			calls.GET("", controllers.GetCallSessions)
			calls.GET("/:sid", controllers.GetCallSession)
		}
	}

	return r
}
