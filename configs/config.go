package config

import (
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config конфигурация консольной утилиты kosctl
type Config struct {
	APIURL      string
	APIToken    string
	LogLevel    string
	LogEncoding string
}

// Глобальная конфигурация
var AppConfig Config

// LoadConfig читает .env и переменные окружения KOS_API_URL, KOS_API_TOKEN
func LoadConfig() error {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	AppConfig = Config{
		APIURL:      getEnv("KOS_API_URL", "http://localhost:8080"),
		APIToken:    os.Getenv("KOS_API_TOKEN"),
		LogLevel:    getEnv("LOG_LEVEL", "warn"),
		LogEncoding: getEnv("LOG_ENCODING", "console"),
	}

	if AppConfig.APIToken == "" {
		return errors.New("KOS_API_TOKEN is not set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
