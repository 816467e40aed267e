package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema lists the DDL statements executed by Bootstrap, children first for
// the drops and parents first for the creates so foreign keys resolve.
var schema = []string{
	`DROP TABLE IF EXISTS audio`,
	`DROP TABLE IF EXISTS users`,
	`CREATE TABLE users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		yandex_id     VARCHAR(100)  NOT NULL,
		email         VARCHAR(255)  NOT NULL,
		username      VARCHAR(255)  NULL,
		password_hash VARCHAR(255)  NULL,
		first_name    VARCHAR(100)  NOT NULL DEFAULT '',
		last_name     VARCHAR(100)  NOT NULL DEFAULT '',
		sex           VARCHAR(20)   NOT NULL DEFAULT '',
		is_admin      BOOLEAN       NOT NULL DEFAULT FALSE,
		created_at    DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_yandex_id (yandex_id),
		UNIQUE KEY uq_users_email (email),
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE audio (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(100)  NOT NULL,
		path       VARCHAR(255)  NOT NULL,
		user_id    BIGINT UNSIGNED NOT NULL,
		created_at DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_audio_name (name),
		CONSTRAINT fk_audio_user FOREIGN KEY (user_id)
			REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Bootstrap drops and recreates the full schema.  Destructive: every row in
// every table is lost.  It backs the unauthenticated /admin/create_table
// endpoint, which exists for quick environment setup only.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
