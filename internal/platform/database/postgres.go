package database

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"codearena/internal/platform/config"
	"codearena/pkg/logger"
)

var DB *sql.DB

func Connect() {
	var err error
	DB, err = sql.Open("pgx", config.AppConfig.DBConnStr)
	if err != nil {
		logger.Fatalf("Error opening database: %v", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err = DB.Ping(); err != nil {
		logger.Fatalf("Error connecting to database: %v", err)
	}

	logger.Infof("Connected to PostgreSQL database %s", config.AppConfig.DBName)
}

func Close() {
	if DB != nil {
		DB.Close()
		logger.Infof("Database connection closed")
	}
}
