package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Драйверы хранилища записей
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config структура конфигурации
type Config struct {
	Port             string
	JWTSecret        string
	StoreDriver      string
	DatabaseURL      string
	DatabaseConfig   DatabaseConfig
	Migrate          bool
	NATSURL          string
	RedisAddr        string
	ViewCacheTTL     time.Duration
	CloudinaryConfig CloudinaryConfig
	LogLevel         string
	LogEncoding      string
	AppEnv           string
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// CloudinaryConfig содержит конфигурацию для Cloudinary.
// Фото объявления N хранятся в папке <UploadFolder>/<N>/.
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadFolder string
}

// Enabled сообщает, заданы ли учетные данные Cloudinary
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// LoadConfig загружает переменные из .env и окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env файл не найден, используем переменные окружения")
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "kos_user"),
		Password: getEnv("PGPASSWORD", "kos_pass"),
		Name:     getEnv("PGDATABASE", "kos"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	// Формируем строку подключения к базе данных
	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode)

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		StoreDriver:    getEnv("STORE_DRIVER", StorePostgres),
		DatabaseURL:    dbURL,
		DatabaseConfig: dbConfig,
		Migrate:        getEnvBool("DB_MIGRATE", false),
		NATSURL:        getEnv("NATS_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		ViewCacheTTL:   getEnvDuration("VIEW_CACHE_TTL", 30*time.Second),
		CloudinaryConfig: CloudinaryConfig{
			CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
			APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
			UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "kos"),
		},
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogEncoding: getEnv("LOG_ENCODING", "json"),
		AppEnv:      getEnv("APP_ENV", "production"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("не задана обязательная переменная окружения JWT_SECRET")
	}
	if c.StoreDriver != StorePostgres && c.StoreDriver != StoreMemory {
		return fmt.Errorf("неизвестный STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// getEnv получает переменную окружения или использует дефолтное значение
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		log.Printf("Неверное значение %s, используем %v", key, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, defaultValue.String()))
	if err != nil {
		log.Printf("Неверное значение %s, используем %v", key, defaultValue)
		return defaultValue
	}
	return v
}
