package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	RedisURL    string
	TokenSecret string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	CORSOrigin  string
	// Seed admin account, created on bootstrap if missing
	AdminEmail    string
	AdminPassword string
	AdminName     string
	// Motivation validity window
	MotivationWindow time.Duration
	// Prayer times (Aladhan API)
	PrayerCity    string
	PrayerCountry string
	// Search
	MeiliURL       string
	MeiliMasterKey string
	// Image storage (MinIO)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioPublicURL string
	MinioUseSSL    bool
	// Snapshot archive
	ArchiveDir string
}

func Load() Config {
	return Config{
		Addr:        getenv("API_ADDR", ":8686"),
		RedisURL:    getenv("REDIS_URL", "redis://localhost:6379/0"),
		TokenSecret: getenv("ROHIS_TOKEN_SECRET", "rohis-dev-secret"),
		AccessTTL:   time.Duration(getenvInt("ROHIS_ACCESS_TTL_SECONDS", 900)) * time.Second,
		RefreshTTL:  time.Duration(getenvInt("ROHIS_REFRESH_TTL_SECONDS", 2592000)) * time.Second,
		CORSOrigin:  getenv("ROHIS_CORS_ORIGIN", "*"),
		// Admin login is disabled if email or password is left empty
		AdminEmail:       getenv("ROHIS_ADMIN_EMAIL", ""),
		AdminPassword:    getenv("ROHIS_ADMIN_PASSWORD", ""),
		AdminName:        getenv("ROHIS_ADMIN_NAME", "Admin"),
		MotivationWindow: time.Duration(getenvInt("ROHIS_MOTIVATION_WINDOW_DAYS", 7)) * 24 * time.Hour,
		PrayerCity:       getenv("ROHIS_PRAYER_CITY", "Yogyakarta"),
		PrayerCountry:    getenv("ROHIS_PRAYER_COUNTRY", "Indonesia"),
		// Meilisearch - empty URL disables it, search falls back to snapshot scan
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		// MinIO - empty endpoint disables image uploads
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "rohis-images"),
		MinioPublicURL: getenv("MINIO_PUBLIC_URL", ""),
		MinioUseSSL:    getenvInt("MINIO_USE_SSL", 0) == 1,
		ArchiveDir:     getenv("ROHIS_ARCHIVE_DIR", "./data/archive"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
