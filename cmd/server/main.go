package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/saasapp/server/internal/auth"
	"github.com/saasapp/server/internal/config"
	"github.com/saasapp/server/internal/database"
	"github.com/saasapp/server/internal/email"
	"github.com/saasapp/server/internal/mailchimp"
	"github.com/saasapp/server/internal/notify"
	"github.com/saasapp/server/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		userStore    user.Store
		templates    user.TemplateLookup
		refreshStore auth.RefreshStore
		linkStore    auth.MagicLinkStore
	)
	switch cfg.Storage {
	case "memory":
		log.Printf("storage: using in-memory stores, data is lost on restart")
		userStore = user.NewMemoryStore()
		templates = email.NewStaticTemplates(email.Defaults)
		refreshStore = auth.NewMemoryRefreshStore()
		linkStore = auth.NewMemoryMagicLinkStore()
	default:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer func() {
			if err := database.Close(db); err != nil {
				log.Printf("database: close: %v", err)
			}
		}()
		if err := database.AutoMigrate(db,
			&user.User{},
			&auth.RefreshToken{},
			&auth.MagicLink{},
			&email.Template{},
		); err != nil {
			log.Fatalf("database: %v", err)
		}

		templateRepo := email.NewTemplateRepository(db)
		if err := templateRepo.Seed(ctx, email.Defaults); err != nil {
			log.Fatalf("database: %v", err)
		}
		userStore = user.NewRepository(db)
		templates = templateRepo
		refreshStore = auth.NewRefreshRepository(db)
		linkStore = auth.NewMagicLinkRepository(db)
	}

	// Notifications
	var mailer email.Sender = email.LogSender{}
	if cfg.SMTPHost != "" {
		mailer = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	lists := mailchimp.NewClient(mailchimp.Config{
		APIKey: cfg.MailchimpAPIKey,
		Region: cfg.MailchimpRegion,
		Lists:  cfg.MailchimpLists(),
	}, nil)
	dispatcher := notify.NewDispatcher(mailer, lists, cfg.EmailFrom())

	// Services
	users := user.NewManager(userStore, templates, dispatcher)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, refreshStore)
	links := auth.NewMagicLinks(linkStore, templates, mailer, cfg.EmailFrom(), cfg.MagicLinkURL, cfg.MagicLinkTTL)

	// Handlers
	authHandler := auth.NewHandler(users, tokens, links)
	userHandler := user.NewHandler(users)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Public routes
	api := app.Group("/api")
	api.Get("/users/:slug", userHandler.GetBySlug)

	authGroup := api.Group("/auth")
	authGroup.Post("/passwordless", authHandler.Passwordless)
	authGroup.Post("/passwordless/verify", authHandler.VerifyPasswordless)
	authGroup.Post("/refresh", authHandler.Refresh)

	// Google OAuth (only if configured)
	if cfg.GoogleEnabled() {
		googleHandler := auth.NewGoogleHandler(
			cfg.GoogleClientID, cfg.GoogleSecret, cfg.GoogleRedirect,
			users, tokens,
		)
		authGroup.Get("/google", googleHandler.RedirectToGoogle)
		authGroup.Get("/google/callback", googleHandler.Callback)
	}

	// Protected routes
	protected := api.Group("", auth.JWTMiddleware(cfg.JWTSecret))
	protected.Get("/me", userHandler.GetMe)
	protected.Patch("/me/profile", userHandler.UpdateProfile)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("Server starting on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("listen: %v", err)
	}
}
