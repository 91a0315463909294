package sqlstore

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist. {{money}} is replaced per dialect.
// IMPORTANT: participants must be created BEFORE the tables that reference it.
const schema = `
CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    sponsor_id TEXT REFERENCES participants(id),
    parent_id TEXT REFERENCES participants(id),
    side TEXT,
    joined_on TEXT NOT NULL,
    active BOOLEAN NOT NULL,
    binary_eligible BOOLEAN NOT NULL,
    lifetime_pairs BIGINT NOT NULL,
    left_carry BIGINT NOT NULL CHECK (left_carry >= 0),
    right_carry BIGINT NOT NULL CHECK (right_carry >= 0),
    pending_left BIGINT NOT NULL DEFAULT 0 CHECK (pending_left >= 0),
    pending_right BIGINT NOT NULL DEFAULT 0 CHECK (pending_right >= 0),
    eligibility_income {{money}} NOT NULL,
    binary_income {{money}} NOT NULL,
    sponsor_income {{money}} NOT NULL,
    flashout_wallet {{money}} NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    UNIQUE (parent_id, side)
);

CREATE TABLE IF NOT EXISTS daily_settlements (
    id TEXT PRIMARY KEY,
    participant_id TEXT NOT NULL REFERENCES participants(id),
    settlement_date TEXT NOT NULL,
    left_joins BIGINT NOT NULL,
    right_joins BIGINT NOT NULL,
    left_carry_before BIGINT NOT NULL,
    right_carry_before BIGINT NOT NULL,
    left_carry_after BIGINT NOT NULL,
    right_carry_after BIGINT NOT NULL,
    eligibility_unlocked BOOLEAN NOT NULL,
    eligibility_bonus {{money}} NOT NULL,
    pairs BIGINT NOT NULL,
    binary_income {{money}} NOT NULL,
    flashout_units BIGINT NOT NULL,
    flashout_amount {{money}} NOT NULL,
    washed_pairs BIGINT NOT NULL,
    sponsor_income {{money}} NOT NULL,
    total {{money}} NOT NULL,
    created_at BIGINT NOT NULL,
    UNIQUE (participant_id, settlement_date)
);

CREATE TABLE IF NOT EXISTS sponsor_credits (
    id TEXT PRIMARY KEY,
    receiver_id TEXT NOT NULL REFERENCES participants(id),
    child_id TEXT NOT NULL REFERENCES participants(id),
    settlement_date TEXT NOT NULL,
    amount {{money}} NOT NULL,
    created_at BIGINT NOT NULL,
    UNIQUE (receiver_id, child_id, settlement_date)
);

CREATE TABLE IF NOT EXISTS run_locks (
    run_date TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    acquired_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_participants_parent_id ON participants(parent_id);
CREATE INDEX IF NOT EXISTS idx_participants_joined_on ON participants(joined_on);
CREATE INDEX IF NOT EXISTS idx_daily_settlements_date ON daily_settlements(settlement_date);
CREATE INDEX IF NOT EXISTS idx_sponsor_credits_date ON sponsor_credits(settlement_date);
`

// runMigrations executes the schema setup one statement at a time.
func runMigrations(ctx context.Context, db *sql.DB, d Dialect) error {
	ddl := strings.ReplaceAll(schema, "{{money}}", d.MoneyType)
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
