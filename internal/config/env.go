package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL      string
	Port             string
	JWTSecret        string
	AwsAccessKey     string
	AwsSecretKey     string
	AwsRegion        string
	BucketName       string
	AIAPIKey         string
	GenModel         string
	GenAPIVersion    string
	ChatRatePerMin   int
	SessionPageLimit int
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		Port:             getEnv("PORT", "8080"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		AwsAccessKey:     getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:     getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:        getEnv("AWS_REGION", "us-east-2"),
		BucketName:       getEnv("BUCKET_NAME", "coursehub-content"),
		AIAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GenModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GenAPIVersion:    getEnv("GEMINI_API_VERSION", "v1"),
		ChatRatePerMin:   getEnvInt("CHAT_RATE_LIMIT", 10),
		SessionPageLimit: getEnvInt("SESSION_PAGE_LIMIT", 20),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
