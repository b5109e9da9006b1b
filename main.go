package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"referral-program/handlers"
	"referral-program/models"
	"referral-program/services"
	"referral-program/store"
	"referral-program/utils"
	"referral-program/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		// Keep internals out of client responses: anything unexpected
		// becomes a generic 500 body.
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "An unexpected error occurred."
			if e, ok := err.(*fiber.Error); ok && e.Code < fiber.StatusInternalServerError {
				code = e.Code
				message = e.Message
			} else {
				log.Printf("unhandled error on %s %s: %v", c.Method(), c.Path(), err)
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": message,
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())

	// CORS for the form frontend. Comma-separated origins from env, same as
	// the rest of the config surface.
	allowedOrigins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	originList := strings.Split(allowedOrigins, ",")
	for i, origin := range originList {
		originList[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(originList, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Per-IP fixed window: 10 requests a minute, 429 beyond that.
	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests. Please try again later.",
			})
		},
	}))

	businessName := getEnv("BUSINESS_NAME", "Lorna's Baked Delights")
	useMock := getEnv("USE_MOCK_SERVICES", "false") == "true"

	var st store.ReferralStore
	if useMock {
		log.Println("USE_MOCK_SERVICES=true — using in-memory store and mock SMS")
		st = store.NewMemoryStore()
	} else {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Fatal("DATABASE_URL environment variable not set")
		}
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatal("failed to connect to database:", err)
		}
		if err := db.AutoMigrate(&models.Referral{}); err != nil {
			log.Fatal("failed to migrate database:", err)
		}
		st = store.NewGormStore(db)
	}

	var sender services.SmsSender
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	if useMock || accountSid == "" {
		if !useMock {
			log.Println("TWILIO_ACCOUNT_SID not set, falling back to mock SMS sender")
		}
		sender = &services.MockSmsSender{BusinessName: businessName}
	} else {
		sender = services.NewTwilioSmsSender(
			accountSid,
			os.Getenv("TWILIO_AUTH_TOKEN"),
			os.Getenv("TWILIO_FROM_NUMBER"),
			businessName,
		)
	}

	notifier := services.NewAsyncNotifier(st, sender)
	referralService := services.NewReferralService(st, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retryInterval := 5 * time.Minute
	if v := os.Getenv("SMS_RETRY_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("Invalid SMS_RETRY_INTERVAL %q, using %s", v, retryInterval)
		} else {
			retryInterval = d
		}
	}
	smsWorker := workers.NewSmsRetryWorker(st, sender)
	go smsWorker.Run(ctx, retryInterval)

	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		services.NewReferralExporter(st, businessName).StartSchedule()
		log.Println("Nightly referral export scheduled")
	} else {
		log.Println("R2_BUCKET_NAME not set, referral export disabled")
	}

	handlers.SetupReferralRoutes(app, referralService)
	handlers.SetupAdminRoutes(app, referralService)

	port := getEnv("PORT", "8080")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Referral server running on http://localhost:%s", port)
	log.Printf("CORS configured for origins: %s", strings.Join(originList, ","))
	log.Printf("SMS retry worker running (every %s)", retryInterval)

	<-ctx.Done()
	log.Println("Shutting down server...")
	notifier.Wait()
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
