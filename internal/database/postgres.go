package database

import (
	"database/sql"
	"fmt"
)

type PgJamRepository struct {
	conn *sql.DB
}

func NewPgJamRepository(dsn string) (*PgJamRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PgJamRepository{conn: db}, nil
}

func (db *PgJamRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgJamRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
