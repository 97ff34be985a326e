package main

import (
	"fmt"
	"os"

	"estetica-voice-backend/config"
	"estetica-voice-backend/models"
	"estetica-voice-backend/routes"
	"estetica-voice-backend/services"
	"estetica-voice-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found")
	}
	utils.InitializeLogger()
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.Product{},
		&models.Appointment{},
		&models.CallSession{},
	)

	seedProducts()
}

func main() {
	logger := utils.GetLogger()
	defer logger.Sync()

	availability := services.NewAvailabilityService(config.DB)
	booking := services.NewBookingService(config.DB, availability)
	notify := services.NewNotifyService(config.DB)
	notify.StartScheduler()

	var assistant services.Assistant
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		gemini, err := services.NewGeminiAssistant(apiKey)
		if err != nil {
			logger.Warn("assistant disabled", zap.Error(err))
		} else {
			assistant = gemini
		}
	}

	flow := services.NewCallFlow(config.DB, availability, booking, assistant, notify)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter(flow)
	printRoutes(r)
	r.Run(":" + port)
}

// seedProducts keeps the baseline catalogue in place, updating existing rows
// by code.
func seedProducts() {
	products := []models.Product{
		{
			Code:            "FACIAL_BASIC",
			Family:          models.FamilyFacial,
			Name:            "Limpieza facial básica",
			Description:     "Limpieza y exfoliación básica.",
			DurationMinutes: 45,
			PriceCents:      3500,
			Active:          true,
		},
		{
			Code:            "FACIAL_PREMIUM",
			Family:          models.FamilyFacial,
			Name:            "Tratamiento facial premium",
			Description:     "Tratamiento intensivo hidratante y rejuvenecedor.",
			DurationMinutes: 60,
			PriceCents:      6000,
			Active:          true,
		},
		{
			Code:            "MANICURE",
			Family:          models.FamilyHands,
			Name:            "Manicura clásica",
			Description:     "Corte, limado y esmaltado básico.",
			DurationMinutes: 40,
			PriceCents:      2500,
			Active:          true,
		},
	}

	for _, p := range products {
		var existing models.Product
		err := config.DB.Where(models.Product{Code: p.Code}).
			Assign(models.Product{
				Family:          p.Family,
				Name:            p.Name,
				Description:     p.Description,
				DurationMinutes: p.DurationMinutes,
				PriceCents:      p.PriceCents,
				Active:          true,
			}).
			FirstOrCreate(&existing).Error
		if err != nil {
			utils.GetLogger().Error("failed to seed product", zap.String("code", p.Code), zap.Error(err))
		}
	}
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
