package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"referdby-backend/handlers"
	"referdby-backend/middleware"
	"referdby-backend/models"
	"referdby-backend/services"
	"referdby-backend/utils"
	"referdby-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // receipts are photos, not game bundles
	})

	// All traffic must come through the gateway.
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Profile{},
		&models.Restaurant{},
		&models.Referral{},
		&models.Activity{},
		&models.DiceToken{},
		&models.PointsAllocationRule{},
		&models.ExchangeRate{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Receipt storage: R2 when configured, local disk otherwise.
	var uploader services.ReceiptUploader
	if os.Getenv("R2_ACCESS_KEY_ID") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		uploader = utils.R2Uploader{}
	} else {
		log.Println("⚠️  R2 not configured, storing receipts on local disk")
		if err := utils.EnsureUploadDir(); err != nil {
			log.Fatal("failed to ensure upload dir:", err)
		}
		uploader = utils.LocalUploader{}
	}

	currencyService := services.NewCurrencyService(db)
	eligibilityService := services.NewEligibilityService(db)
	allocationService := services.NewAllocationService(db, currencyService)
	referralService := services.NewReferralService(db)
	activityService := services.NewActivityService(db, referralService)
	tokenService := services.NewDiceTokenService(db)
	restaurantService := services.NewRestaurantService(db)
	redemptionService := services.NewRedemptionService(db, eligibilityService, allocationService, uploader)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Rate table refresh: the conversion service only ever reads the table.
	fxPairs := [][2]string{{"USD", "EUR"}, {"EUR", "USD"}, {"USD", "GBP"}, {"GBP", "USD"}, {"EUR", "GBP"}, {"GBP", "EUR"}}
	rateSync := workers.NewRateSyncClient(db, fxPairs)
	go workers.PollRates(ctx, rateSync, 6*time.Hour)

	services.StartExpirySweeper(referralService, activityService)

	handlers.SetupReferralRoutes(app, referralService, activityService)
	handlers.SetupRedemptionRoutes(app, redemptionService, eligibilityService, allocationService, activityService)
	handlers.SetupTokenRoutes(app, tokenService)
	handlers.SetupRestaurantRoutes(app, restaurantService, currencyService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	if rateSync != nil {
		log.Println("✅ Rate sync running (every 6h)")
	}
	log.Println("✅ Expiry sweeper running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
