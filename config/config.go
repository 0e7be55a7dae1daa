package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: No .env file found, using environment variables")
	}
}

func GetEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

// IsProduction reports whether APP_ENV is set to production. Non-production
// deployments surface dev-only conveniences such as the devOtp response field.
func IsProduction() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "production")
}
