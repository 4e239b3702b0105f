package store

import (
	"context"
	"fmt"
)

// Migrate creates the donor tables when they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	dateType := "DATE"
	boolType := "BOOLEAN"
	realType := "DOUBLE PRECISION"
	if s.dialect == DialectSQLite {
		dateType = "TEXT"
		realType = "REAL"
	}
	id := s.dialect.idColumn()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS donors (
			donor_id ` + id + `,
			name VARCHAR(255) NOT NULL,
			age INTEGER NOT NULL,
			gender VARCHAR(1) NOT NULL,
			location VARCHAR(255) NOT NULL,
			state VARCHAR(255) NOT NULL DEFAULT '',
			blood_group VARCHAR(3) NOT NULL,
			total_donations INTEGER NOT NULL DEFAULT 0,
			last_donation ` + dateType + `,
			is_active ` + boolType + ` NOT NULL DEFAULT TRUE,
			latitude ` + realType + ` NOT NULL,
			longitude ` + realType + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS donations (
			donation_id ` + id + `,
			donor_id BIGINT NOT NULL REFERENCES donors(donor_id),
			donation_date ` + dateType + ` NOT NULL,
			location VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS donor_history (
			history_id ` + id + `,
			donor_id BIGINT NOT NULL REFERENCES donors(donor_id),
			name VARCHAR(255) NOT NULL,
			status VARCHAR(8) NOT NULL,
			record_date ` + dateType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_donors_active ON donors (is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_donations_donor ON donations (donor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_donor_history_donor ON donor_history (donor_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate donor schema: %w", err)
		}
	}
	return nil
}
