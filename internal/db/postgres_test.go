package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestInitPostgresSkipsWithoutDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Cleanup(func() { Pool = nil })

	InitPostgres(context.Background())
	if Pool != nil {
		t.Fatal("expected no pool without DATABASE_URL")
	}
}

func TestInitPostgresWithStubs(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/loanwatch")

	origNewPool := newPool
	origPing := pingDB
	t.Cleanup(func() {
		newPool = origNewPool
		pingDB = origPing
		Pool = nil
	})

	var capturedDSN string
	stub := &pgxpool.Pool{}
	newPool = func(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
		capturedDSN = dsn
		return stub, nil
	}
	pingDB = func(ctx context.Context, pool *pgxpool.Pool) error {
		return nil
	}

	InitPostgres(context.Background())
	if capturedDSN != "postgres://user:pass@db:5432/loanwatch" {
		t.Fatalf("expected DSN to be propagated, got %s", capturedDSN)
	}
	if Pool != stub {
		t.Fatal("expected global pool to be set")
	}
}
