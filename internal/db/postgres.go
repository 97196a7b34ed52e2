// Package db provides database connection helpers and the relational
// loader and query layer over employers and vacancies.
package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect creates and verifies a pgxpool connection pool.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// EnsureDatabase checks for the named logical database through the
// admin connection, creates it when absent, and returns the connection
// URL pointing at it. Safe to call when the database already exists.
func EnsureDatabase(ctx context.Context, adminURL, name string) (string, error) {
	pool, err := Connect(ctx, adminURL)
	if err != nil {
		return "", err
	}
	defer pool.Close()

	var exists int
	err = pool.QueryRow(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, name).Scan(&exists)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// CREATE DATABASE cannot be parameterised; sanitise the identifier.
		if _, err := pool.Exec(ctx, fmt.Sprintf(`CREATE DATABASE %s`, pgx.Identifier{name}.Sanitize())); err != nil {
			return "", fmt.Errorf("create database %q: %w", name, err)
		}
	case err != nil:
		return "", fmt.Errorf("check database %q: %w", name, err)
	}

	return RewriteDatabaseURL(adminURL, name)
}

// RewriteDatabaseURL replaces the database segment of a postgres URL.
func RewriteDatabaseURL(databaseURL, name string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	u.Path = "/" + name
	return u.String(), nil
}
