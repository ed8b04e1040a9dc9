package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms/cache"
	"lms/config"
	"lms/database"
	"lms/middleware"
	courseRoutes "lms/routers/courseRoutes"
	documentRoutes "lms/routers/documentRoutes"
	gradingRoutes "lms/routers/gradingRoutes"
	systemRoutes "lms/routers/systemRoutes"
	"lms/scheduler"
	"lms/services"
	"lms/utils"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	ctx := context.Background()
	checks := map[string]systemRoutes.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := database.Database.Db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	gradeCache, err := cache.New(ctx, config.AppConfig.RedisURL, config.AppConfig.GradeCacheTTL)
	if err != nil {
		log.Printf("Warning: Redis unavailable (%v). Grade reports will not be cached.", err)
		gradeCache = cache.NopGradeCache{}
	}
	if redisCache, ok := gradeCache.(*cache.RedisGradeCache); ok {
		defer redisCache.Close()
		checks["redis"] = redisCache.HealthCheck
		log.Println("Grade cache connected to Redis")
	}

	notifier := utils.MailNotifier{Webhook: utils.NewWebhookClient(config.AppConfig.CompletionWebhookURL)}
	container := services.Init(database.Database.Db, gradeCache, notifier)

	progressScheduler := scheduler.New(database.Database.Db, container.Enrollment, notifier)
	if err := progressScheduler.Start(config.AppConfig.ProgressCron, config.AppConfig.ReminderCron); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:     config.AppConfig.AppName,
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
		BodyLimit:   60 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization,X-Request-ID",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestId} ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	app.Static("/uploads", config.AppConfig.UploadDir)

	courseRoutes.SetupCourseRoutes(app)
	courseRoutes.SetupAdminCourseRoutes(app)
	gradingRoutes.SetupGradingRoutes(app)
	documentRoutes.SetupDocumentRoutes(app)
	systemRoutes.SetupSystemRoutes(app, checks)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		progressScheduler.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		log.Fatal(err)
	}
}
