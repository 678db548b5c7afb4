package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Credentials the object store container starts with.
const (
	S3AccessKey = "minio"
	S3SecretKey = "minio123"
)

// SeedCountries inserts a handful of ISO 3166 codes.
func SeedCountries(ctx context.Context, db *sql.DB) error {
	countries := [][2]string{
		{"United States", "US"},
		{"Germany", "DE"},
		{"Japan", "JP"},
		{"Brazil", "BR"},
	}
	for _, c := range countries {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO country_codes (name, isocode) VALUES ($1, $2) ON CONFLICT (isocode) DO NOTHING",
			c[0], c[1],
		); err != nil {
			return fmt.Errorf("insert country %s: %w", c[1], err)
		}
	}
	return nil
}

// SeedResults records a suite result with n test results under it, all
// starting at start. Every third test fails. It returns the suite result id.
func SeedResults(ctx context.Context, db *sql.DB, start time.Time, n int) (int64, error) {
	var suiteID int64
	err := db.QueryRowContext(ctx, `
INSERT INTO test_results (objecttype, testimplementation, starttime, endtime, result, valid)
VALUES (1, 'suites.smoke', $1, $2, 1, TRUE)
RETURNING id`, start, start.Add(time.Duration(n)*time.Minute)).Scan(&suiteID)
	if err != nil {
		return 0, fmt.Errorf("insert suite result: %w", err)
	}
	for i := 0; i < n; i++ {
		result := 1
		if i%3 == 2 {
			result = 0
		}
		begin := start.Add(time.Duration(i) * time.Minute)
		if _, err := db.ExecContext(ctx, `
INSERT INTO test_results (objecttype, testimplementation, parent_id, starttime, endtime, result, valid)
VALUES (2, $1, $2, $3, $4, $5, TRUE)`,
			fmt.Sprintf("testcases.case%02d", i), suiteID, begin, begin.Add(30*time.Second), result,
		); err != nil {
			return 0, fmt.Errorf("insert test result %d: %w", i, err)
		}
	}
	return suiteID, nil
}
