package db

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect はマーケットプレイスDBに接続して *gorm.DB を返す。
func Connect() (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsnFromEnv()), &gorm.Config{})
}

// DATABASE_URL が丸ごと渡される環境ではそれを最優先し、
// 無ければ POSTGRES_* の各変数からDSNを組み立てる。
func dsnFromEnv() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getenv("POSTGRES_HOST", "localhost"),
		getenv("POSTGRES_PORT", "5432"),
		getenv("POSTGRES_USER", "postgres"),
		getenv("POSTGRES_PASSWORD", "postgres"),
		getenv("POSTGRES_DB", "marketplace"),
		getenv("POSTGRES_SSLMODE", "disable"),
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
