package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JulienRioux/slabbers/internal/config"
	"github.com/JulienRioux/slabbers/internal/database"
	"github.com/JulienRioux/slabbers/internal/ebay"
	"github.com/JulienRioux/slabbers/internal/handler"
	"github.com/JulienRioux/slabbers/internal/middleware"
	"github.com/JulienRioux/slabbers/internal/repository"
	"github.com/JulienRioux/slabbers/internal/roboflow"
	"github.com/JulienRioux/slabbers/internal/service"
	"github.com/JulienRioux/slabbers/internal/storage"
	"github.com/JulienRioux/slabbers/internal/vision"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database
	db, err := database.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations applied successfully")

	// Repositories
	cardRepo := repository.NewCardRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Collaborators; each one is optional.
	var cardImages, avatars service.ImageBucket
	if cfg.StorageEnabled() {
		store := storage.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		cardImages = store.Bucket(cfg.CardImagesBucket)
		avatars = store.Bucket(cfg.AvatarBucket)
	} else {
		log.Println("Storage disabled: SUPABASE_URL or SUPABASE_SERVICE_KEY not set")
	}

	var identifier service.CardIdentifier
	if cfg.VisionEnabled() {
		identifier = vision.NewClient(vision.Config{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.OpenAITimeout,
		})
	} else {
		log.Println("Identification disabled: OPENAI_API_KEY not set")
	}

	var market service.ListingFinder
	if cfg.EbayEnabled() {
		market = ebay.NewClient(ebay.Config{
			ClientID:     cfg.EbayClientID,
			ClientSecret: cfg.EbayClientSecret,
			BaseURL:      cfg.EbayBaseURL,
		}, ebay.NewTokenCache())
	} else {
		log.Println("Price estimates disabled: eBay credentials not set")
	}

	var detector service.CardDetector
	if cfg.RoboflowEnabled() {
		detector = roboflow.NewClient(roboflow.Config{APIKey: cfg.RoboflowAPIKey, WorkflowURL: cfg.RoboflowWorkflowURL})
	} else {
		log.Println("Crop disabled: Roboflow not configured")
	}

	// Services
	wsHub := service.NewWSHub()
	notifiers := []service.CardNotifier{wsHub}
	if cfg.DiscordListingsWebhook != "" {
		discord, err := service.NewDiscordNotifier(cfg.DiscordListingsWebhook, cfg.PublicSiteURL)
		if err != nil {
			log.Printf("Discord notifier disabled: %v", err)
		} else {
			notifiers = append(notifiers, discord)
		}
	}

	cardSvc := service.NewCardService(cardRepo, profileRepo, cardImages, notifiers...)
	profileSvc := service.NewProfileService(profileRepo, avatars)
	identifySvc := service.NewIdentifyService(identifier, market)
	cropSvc := service.NewCropService(detector)

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    32 * 1024 * 1024, // 6 photos per request
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.AllowOrigins))

	// Health
	healthH := handler.NewHealthHandler(db)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)

	// API v1
	v1 := app.Group("/api/v1")
	optional := middleware.OptionalAuth(cfg.SupabaseJWTSecret)
	auth := middleware.Auth(cfg.SupabaseJWTSecret)
	heavy := middleware.RateLimit(cfg.IdentifyRateLimit, time.Minute)

	// Admin
	admin := v1.Group("/admin", middleware.AdminKey(cfg.AdminKey))
	adminH := handler.NewAdminHandler(cardSvc, wsHub)
	admin.Get("/stats", adminH.Stats)

	// Cards
	cardH := handler.NewCardHandler(cardSvc)
	identifyH := handler.NewIdentifyHandler(identifySvc, cropSvc)
	cards := v1.Group("/cards")
	cards.Get("/", optional, cardH.Gallery)
	cards.Get("/search", optional, cardH.Search)
	cards.Post("/identify", auth, heavy, identifyH.Identify)
	cards.Post("/crop", auth, heavy, identifyH.Crop)
	cards.Post("/", auth, cardH.Create)
	cards.Get("/:id", optional, cardH.Get)
	cards.Patch("/:id", auth, cardH.Update)
	cards.Delete("/:id", auth, cardH.Delete)

	// Profiles
	profileH := handler.NewProfileHandler(profileSvc)
	v1.Get("/users/:id", profileH.Get)
	v1.Get("/users/:id/cards", optional, cardH.UserCards)
	v1.Put("/profile", auth, profileH.Update)
	v1.Post("/profile/avatar", auth, profileH.UploadAvatar)

	// WebSocket
	wsH := handler.NewWSHandler(wsHub)
	app.Get("/ws", optional, wsH.Upgrade)

	// Start hub
	go wsHub.Run()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Printf("slabbers backend running on :%s (%s)", cfg.Port, cfg.Env)

	<-quit
	log.Println("Shutting down...")
	_ = app.ShutdownWithTimeout(5 * time.Second)
	wsHub.Shutdown()
	log.Println("Server stopped")
}
