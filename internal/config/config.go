// Package config reads the application configuration from the environment via
// Viper. main loads a .env file first, so local development only needs a file.
package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig
	Mongo  MongoConfig
	JWT    JWTConfig
	SMTP   SMTPConfig
	Minio  MinioConfig
	GitHub GitHubConfig
}

type AppConfig struct {
	Env      string // development, staging, production
	Port     string
	BaseURL  string // public base URL used in recovery links
	LogLevel string
}

type MongoConfig struct {
	URI      string
	Database string
}

type JWTConfig struct {
	Secret   string
	TTLHours int
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DB", "commerce")
	viper.SetDefault("JWT_TTL_HOURS", 4)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	viper.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	viper.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	viper.SetDefault("MINIO_BUCKET", "commerce-uploads")
	viper.SetDefault("MINIO_USE_SSL", false)

	cfg := &Config{
		App: AppConfig{
			Env:      viper.GetString("APP_ENV"),
			Port:     viper.GetString("PORT"),
			BaseURL:  viper.GetString("BASE_URL"),
			LogLevel: viper.GetString("LOG_LEVEL"),
		},
		Mongo: MongoConfig{
			URI:      viper.GetString("MONGO_URI"),
			Database: viper.GetString("MONGO_DB"),
		},
		JWT: JWTConfig{
			Secret:   viper.GetString("JWT_SECRET"),
			TTLHours: viper.GetInt("JWT_TTL_HOURS"),
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("SMTP_FROM"),
		},
		Minio: MinioConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: viper.GetString("MINIO_SECRET_KEY"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
		},
		GitHub: GitHubConfig{
			ClientID:     viper.GetString("GITHUB_CLIENT_ID"),
			ClientSecret: viper.GetString("GITHUB_CLIENT_SECRET"),
			CallbackURL:  viper.GetString("GITHUB_CALLBACK_URL"),
		},
	}
	return cfg, nil
}
