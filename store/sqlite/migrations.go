package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Tollgate store (SQLite).
var Migrations = migrate.NewGroup("tollgate")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tollgate_contractors",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_contractors (
    address    TEXT PRIMARY KEY,
    per_cycle  INTEGER NOT NULL DEFAULT 0,
    balance    INTEGER NOT NULL DEFAULT 0,
    metadata   TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tollgate_contractors_created ON tollgate_contractors (created_at, address);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_contractors`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_subscriptions",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_subscriptions (
    id              TEXT PRIMARY KEY,
    customer        TEXT NOT NULL DEFAULT '',
    contractor      TEXT NOT NULL DEFAULT '',
    credential_id   TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'granted',
    next_payment_at TEXT NOT NULL DEFAULT (datetime('now')),
    cycle_nanos     INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tollgate_subs_pair ON tollgate_subscriptions (customer, contractor);
CREATE INDEX IF NOT EXISTS idx_tollgate_subs_customer ON tollgate_subscriptions (customer);
CREATE INDEX IF NOT EXISTS idx_tollgate_subs_status ON tollgate_subscriptions (status);
CREATE INDEX IF NOT EXISTS idx_tollgate_subs_created ON tollgate_subscriptions (created_at, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_receipts",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_receipts (
    id          TEXT PRIMARY KEY,
    kind        TEXT NOT NULL DEFAULT '',
    customer    TEXT NOT NULL DEFAULT '',
    contractor  TEXT NOT NULL DEFAULT '',
    amount      INTEGER NOT NULL DEFAULT 0,
    fee         INTEGER NOT NULL DEFAULT 0,
    net         INTEGER NOT NULL DEFAULT 0,
    occurred_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tollgate_receipts_customer ON tollgate_receipts (customer, occurred_at);
CREATE INDEX IF NOT EXISTS idx_tollgate_receipts_contractor ON tollgate_receipts (contractor, occurred_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_receipts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_fee_pool",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_fee_pool (
    id     INTEGER PRIMARY KEY,
    amount INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO tollgate_fee_pool (id, amount) VALUES (1, 0);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_fee_pool`)
				return err
			},
		},
	)
}
