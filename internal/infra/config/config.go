// internal/infra/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the environment configuration for the cart sync service.
type Config struct {
	Port          string
	AllowedOrigin string

	// GCP / Firestore
	GCPProjectID             string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirebaseProjectID        string

	// Cart store selection: CART_API_BASE_URL > DATABASE_URL > Firestore.
	CartAPIBaseURL    string
	DatabaseURL       string
	DatabaseURLSecret string // Secret Manager resource for the DSN

	// Stock oracle: STOCK_BASE_URL > Firestore inventories.
	StockBaseURL string

	// Durable local mirror (SQLite file).
	MirrorDBPath string

	// Product image bucket for cart line image resolution.
	ProductImageBucket string

	// Engine tuning (zero means package defaults).
	Debounce           time.Duration
	StockTimeout       time.Duration
	RevalidateInterval time.Duration
	RevalidateSample   int
}

// Load reads environment variables into a Config.
func Load() *Config {
	defaultProject := os.Getenv("GCP_PROJECT_ID")

	return &Config{
		Port:          getenvDefault("PORT", "8080"),
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),

		GCPProjectID:             defaultProject,
		FirestoreProjectID:       getenvDefault("FIRESTORE_PROJECT_ID", defaultProject),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		FirebaseProjectID:        getenvDefault("FIREBASE_PROJECT_ID", defaultProject),

		CartAPIBaseURL:    os.Getenv("CART_API_BASE_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DatabaseURLSecret: os.Getenv("DATABASE_URL_SECRET"),

		StockBaseURL: os.Getenv("STOCK_BASE_URL"),

		MirrorDBPath: getenvDefault("MIRROR_DB_PATH", "cartsync-mirror.db"),

		ProductImageBucket: os.Getenv("PRODUCT_IMAGE_BUCKET"),

		Debounce:           getenvMillis("SYNC_DEBOUNCE_MS"),
		StockTimeout:       getenvMillis("STOCK_TIMEOUT_MS"),
		RevalidateInterval: getenvMillis("REVALIDATE_INTERVAL_MS"),
		RevalidateSample:   getenvInt("REVALIDATE_SAMPLE"),
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func getenvMillis(key string) time.Duration {
	n := getenvInt(key)
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}
