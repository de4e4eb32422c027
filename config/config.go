package config

import (
	"log"

	"github.com/caarlos0/env/v11"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int    `env:"PORT" envDefault:"8080"`
	Dsn                 string `env:"DSN" envDefault:"postgres://localhost:5432/tripfolio"`
	BaseURL             string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	JwtSecret           string `env:"JWT_SECRET"`
	MapsAPIKey          string `env:"MAPS_API_KEY"`
	MaxIntermediates    int    `env:"MAX_INTERMEDIATE_WAYPOINTS" envDefault:"8"`
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Printf("[Env]: unable to load .env file %v", loadErr)
	}

	var cfg Config

	if parseErr := env.Parse(&cfg); parseErr != nil {
		log.Printf("[Env]: failed to parse environment variables: %v", parseErr)
	}

	// Route planning cannot work without a directions provider, so an
	// absent key is fatal rather than a degraded mode.
	if cfg.MapsAPIKey == "" {
		log.Fatal("[Env]: MAPS_API_KEY is required")
	}

	return &cfg
}
