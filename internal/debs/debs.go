package deps

import (
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tripfolio/tripfolio-api/config"
	"github.com/tripfolio/tripfolio-api/internal/db"
	googlemaps "github.com/tripfolio/tripfolio-api/internal/http/google"
	"github.com/tripfolio/tripfolio-api/util/storage"
)

type Dependencies struct {
	DB         *db.DB
	Cloudinary *storage.Cloudinary
	Maps       *googlemaps.GoogleMapsClient
}

func New(cfg *config.Config) *Dependencies {
	database, err := db.New(cfg.Dsn)
	if err != nil {
		log.Panicln("failed to connect to database", "error", err)
	}

	deps := Dependencies{
		DB:         database,
		Cloudinary: storage.NewCloudinary(cfg),
		Maps:       googlemaps.NewGoogleMapsClient(cfg.MapsAPIKey),
	}
	return &deps
}

func (d *Dependencies) Pool() *pgxpool.Pool {
	return d.DB.Pool()
}
