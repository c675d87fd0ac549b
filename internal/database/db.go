package database

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    _ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection before returning.
// Reservation timestamps are stored and compared in UTC, so the DSN pins
// parseTime and loc; the pool is sized for the HTTP handlers plus the
// worker pool's concurrent jobs sharing one *sql.DB.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
    auth := user
    if pass != "" {
        auth = fmt.Sprintf("%s:%s", user, pass)
    }
    dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
        auth, host, port, name)

    db, err := sql.Open("mysql", dsn)
    if err != nil {
        return nil, err
    }

    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(10)
    db.SetConnMaxLifetime(30 * time.Minute)

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("database: ping: %w", err)
    }
    return db, nil
}
