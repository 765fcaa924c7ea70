package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/bidzi/bidzi-backend/internal/database"
	"github.com/bidzi/bidzi-backend/internal/dispatch"
	"github.com/bidzi/bidzi-backend/internal/handlers"
	"github.com/bidzi/bidzi-backend/internal/ingest"
	"github.com/bidzi/bidzi-backend/internal/middleware"
	"github.com/bidzi/bidzi-backend/internal/negotiation"
	"github.com/bidzi/bidzi-backend/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment")
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	hub := services.NewHub()
	go hub.Run()

	producer := ingest.NewProducer()
	if producer == nil {
		log.Printf("Kafka brokers not configured, location pings stay local")
	}
	defer producer.Close()

	engine := negotiation.NewEngine(negotiation.NewGormStore(db), hub)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	negotiation.StartSweeper(sweepCtx, engine)

	dispatcher := dispatch.NewDispatcher(services.NearbyDrivers, dispatch.NewGormStore(db), hub)

	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	r.Static("/uploads", "./uploads")
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "connections": hub.ConnectedClients()})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
				users.POST("/profile/photo", handlers.UploadProfilePhoto(db))
			}

			bookings := protected.Group("/bookings")
			{
				bookings.POST("", handlers.CreateBooking(db, dispatcher))
				bookings.GET("", handlers.ListMyBookings(db))
				bookings.GET("/:id", handlers.GetBooking(db, engine))
				bookings.POST("/:id/cancel", handlers.CancelBooking(engine))
				bookings.GET("/:id/offers", handlers.ListOffers(db, engine))
				bookings.POST("/:id/accept", handlers.AcceptOffer(engine))
				bookings.POST("/:id/counter", handlers.SubmitCounterOffer(engine))
			}

			shared := protected.Group("/shared-rides")
			{
				shared.POST("", handlers.CreateSharedRide(db))
				shared.GET("", handlers.ListAvailableSharedRides(db))
				shared.POST("/:id/join", handlers.JoinSharedRide(db, hub))
				shared.GET("/:id/participants", handlers.ListSharedRideParticipants(db))
				shared.POST("/participants/:id/respond", handlers.RespondToParticipant(db, hub))
			}

			scheduled := protected.Group("/scheduled-rides")
			{
				scheduled.POST("", handlers.ScheduleRide(db))
				scheduled.GET("", handlers.ListScheduledRides(db))
				scheduled.POST("/:id/cancel", handlers.CancelScheduledRide(db))
			}

			driver := protected.Group("/driver")
			{
				driver.POST("/location", handlers.UpdateLocation(db, producer))
				driver.POST("/availability", handlers.SetAvailability(db))
				driver.GET("/requests", handlers.ListPendingRequests(db))
				driver.POST("/requests/:id/respond", handlers.RespondToRequest(db, engine))
				driver.GET("/offers", handlers.ListMyOffers(db, engine))
				driver.POST("/counters/:id/respond", handlers.RespondToCounter(engine))
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", handlers.ListNotifications(db))
				notifications.POST("/:id/read", handlers.MarkNotificationRead(db))
				notifications.POST("/read-all", handlers.MarkAllNotificationsRead(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
