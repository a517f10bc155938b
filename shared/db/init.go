package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
)

// InitDB opens the postgres connection and bootstraps the schema on first
// run. POSTGRES_DSN wins; otherwise the connection string is assembled from
// the discrete DB_* variables.
func InitDB() (*sql.DB, error) {
	connStr := os.Getenv("POSTGRES_DSN")

	if connStr == "" {
		dbHost := os.Getenv("DB_HOST")
		dbPort := os.Getenv("DB_PORT")
		dbUser := os.Getenv("DB_USER")
		dbPassword := os.Getenv("DB_PASSWORD")
		dbName := os.Getenv("DB_NAME")
		dbSSLMode := os.Getenv("DB_SSLMODE")

		if dbHost == "" {
			dbHost = "localhost"
		}
		if dbPort == "" {
			dbPort = "5432"
		}
		if dbUser == "" {
			dbUser = "postgres"
		}
		if dbPassword == "" {
			dbPassword = "postgres"
		}
		if dbName == "" {
			dbName = "tenant_ai_gateway"
		}
		if dbSSLMode == "" {
			dbSSLMode = "disable"
		}

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Println("Successfully connected to database")
	return db, nil
}

func initializeSchema(db *sql.DB) error {
	var exists bool
	query := `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_name = 'tenants'
	);`

	if err := db.QueryRow(query).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if schema exists: %w", err)
	}

	if exists {
		return nil
	}

	log.Println("Database schema not found, initializing...")
	if err := createSchema(db); err != nil {
		return err
	}
	log.Println("Database schema initialized successfully")
	return nil
}

func createSchema(db *sql.DB) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	schemaPaths := []string{
		filepath.Join(wd, "shared", "db", "schema.sql"),
		filepath.Join(wd, "..", "shared", "db", "schema.sql"),
		filepath.Join(wd, "..", "..", "shared", "db", "schema.sql"),
		"shared/db/schema.sql",
	}

	var schemaContent []byte
	var schemaPath string

	for _, path := range schemaPaths {
		if _, err := os.Stat(path); err == nil {
			schemaContent, err = os.ReadFile(path)
			if err == nil {
				schemaPath = path
				break
			}
		}
	}

	if schemaContent == nil {
		return fmt.Errorf("schema.sql file not found in any of the expected locations: %v", schemaPaths)
	}

	log.Printf("Loading schema from: %s", schemaPath)

	if _, err := db.Exec(string(schemaContent)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}
