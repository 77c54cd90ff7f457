package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/lromero/commerce-api/internal/config"
	"github.com/lromero/commerce-api/internal/dao"
	"github.com/lromero/commerce-api/internal/db"
	"github.com/lromero/commerce-api/internal/handlers"
	"github.com/lromero/commerce-api/internal/logger"
	"github.com/lromero/commerce-api/internal/mailer"
	"github.com/lromero/commerce-api/internal/middleware"
	"github.com/lromero/commerce-api/internal/services"
	"github.com/lromero/commerce-api/internal/storage"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Setup(cfg.App.Env, cfg.App.LogLevel)

	database, err := db.Connect(cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb")
	}
	log.Info().Str("db", cfg.Mongo.Database).Msg("connected to MongoDB")

	uploads, err := storage.NewMinioStore(
		cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey,
		cfg.Minio.Bucket, cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("connect minio")
	}
	log.Info().Str("bucket", cfg.Minio.Bucket).Msg("connected to MinIO")

	mail := mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password)

	userDAO := dao.NewUserDAO(database)
	productDAO := dao.NewProductDAO(database, mail, cfg.SMTP.From)

	auth := services.NewAuthService(userDAO, cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHours)*time.Hour)
	oauth := services.NewGitHubOAuth(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL, userDAO)

	sessionHandler := handlers.NewSessionHandler(auth, oauth, userDAO, mail, cfg.SMTP.From, cfg.App.BaseURL)
	userHandler := handlers.NewUserHandler(userDAO, uploads, mail, cfg.SMTP.From)
	productHandler := handlers.NewProductHandler(productDAO)

	authRequired := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	adminOnly := middleware.NewAdminMiddleware()

	app := fiber.New()
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	api := app.Group("/api")

	sessions := api.Group("/sessions")
	sessions.Post("/register", sessionHandler.Register)
	sessions.Post("/login", sessionHandler.Login)
	sessions.Post("/logout", sessionHandler.Logout)
	sessions.Get("/current", authRequired, sessionHandler.Current)
	sessions.Get("/github", sessionHandler.GithubLogin)
	sessions.Get("/githubcallback", sessionHandler.GithubCallback)
	sessions.Post("/passrecover", sessionHandler.PasswordRecover)
	sessions.Post("/passrecover/:token", sessionHandler.PasswordReset)

	users := api.Group("/users", authRequired)
	users.Get("/", adminOnly, userHandler.GetUsers)
	users.Delete("/inactive", adminOnly, userHandler.DeleteInactive)
	users.Delete("/:uid", adminOnly, userHandler.DeleteUser)
	users.Put("/premium/:uid", adminOnly, userHandler.AdminRoleUpdate)
	users.Put("/role", userHandler.UpdateRole)
	users.Post("/profilepic", userHandler.UploadProfilePic)

	products := api.Group("/products")
	products.Get("/", productHandler.List)
	products.Get("/:pid", productHandler.Get)
	products.Post("/", authRequired, productHandler.Create)
	products.Put("/:pid", authRequired, productHandler.Update)
	products.Delete("/:pid", authRequired, productHandler.Delete)

	log.Fatal().Err(app.Listen(":" + cfg.App.Port)).Msg("server stopped")
}
