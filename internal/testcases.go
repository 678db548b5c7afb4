package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
)

// TestRepository implements labdb.TestStore: the test catalog here and the
// result log in testresults.go.
type TestRepository struct {
	pool dbPool
}

var _ labdb.TestStore = (*TestRepository)(nil)

func NewTestRepository(pool dbPool) *TestRepository {
	return &TestRepository{pool: pool}
}

func (r *TestRepository) CreateFunctionalArea(ctx context.Context, name, description string) (*labdb.FunctionalArea, error) {
	if name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	area := &labdb.FunctionalArea{Name: name, Description: description}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO functional_area (name, description) VALUES ($1, $2) RETURNING id",
		name, description,
	).Scan(&area.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert functional area: %w", err), "functional area", name)
	}
	return area, nil
}

func scanFunctionalArea(row pgx.Rows) (labdb.FunctionalArea, error) {
	var a labdb.FunctionalArea
	err := row.Scan(&a.ID, &a.Name, &a.Description)
	return a, err
}

const testCaseColumns = "tc.id, tc.name, tc.purpose, tc.passcriteria, tc.automated, tc.interactive"

func scanTestCase(row pgx.Row) (labdb.TestCase, error) {
	var tc labdb.TestCase
	err := row.Scan(&tc.ID, &tc.Name, &tc.Purpose, &tc.PassCriteria, &tc.Automated, &tc.Interactive)
	return tc, err
}

// CreateTestCase stores a test case and links the functional areas it lists
// by id.
func (r *TestRepository) CreateTestCase(ctx context.Context, tc *labdb.TestCase) (*labdb.TestCase, error) {
	if tc == nil || tc.Name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO test_cases (name, purpose, passcriteria, automated, interactive)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`,
			tc.Name, tc.Purpose, tc.PassCriteria, tc.Automated, tc.Interactive,
		).Scan(&tc.ID); err != nil {
			return mapError(fmt.Errorf("insert test case: %w", err), "test case", tc.Name)
		}
		for _, area := range tc.FunctionalAreas {
			if err := linkTestCaseArea(ctx, tx, tc.ID, area.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tc, nil
}

func linkTestCaseArea(ctx context.Context, q querier, testCaseID, areaID int64) error {
	_, err := q.Exec(ctx,
		"INSERT INTO test_cases_areas (testcase_id, functionalarea_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		testCaseID, areaID,
	)
	if err != nil {
		return mapError(fmt.Errorf("link functional area: %w", err), "functional area", idKey(areaID))
	}
	return nil
}

func (r *TestRepository) GetTestCaseByName(ctx context.Context, name string) (*labdb.TestCase, error) {
	tc, err := scanTestCase(r.pool.QueryRow(ctx, "SELECT "+testCaseColumns+" FROM test_cases tc WHERE tc.name = $1", name))
	if err != nil {
		return nil, mapError(err, "test case", name)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT fa.id, fa.name, fa.description FROM functional_area fa
			JOIN test_cases_areas tca ON tca.functionalarea_id = fa.id
			WHERE tca.testcase_id = $1
			ORDER BY fa.name`,
		tc.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query functional areas: %w", err)
	}
	if tc.FunctionalAreas, err = collectRows(rows, scanFunctionalArea); err != nil {
		return nil, err
	}
	return &tc, nil
}

func (r *TestRepository) AddTestCaseArea(ctx context.Context, testCaseID, areaID int64) error {
	return linkTestCaseArea(ctx, r.pool, testCaseID, areaID)
}

func (r *TestRepository) CreateTestSuite(ctx context.Context, name, purpose string) (*labdb.TestSuite, error) {
	if name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	suite := &labdb.TestSuite{Name: name, Purpose: purpose}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO test_suites (name, purpose) VALUES ($1, $2) RETURNING id",
		name, purpose,
	).Scan(&suite.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert test suite: %w", err), "test suite", name)
	}
	return suite, nil
}

func (r *TestRepository) AddTestCaseToSuite(ctx context.Context, suiteID, testCaseID int64) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO test_suites_testcases (testsuite_id, testcase_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		suiteID, testCaseID,
	)
	if err != nil {
		return mapError(fmt.Errorf("add test case to suite: %w", err), "test suite", idKey(suiteID))
	}
	return nil
}

func (r *TestRepository) SuiteTestCases(ctx context.Context, suiteID int64) ([]labdb.TestCase, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testCaseColumns+` FROM test_cases tc
			JOIN test_suites_testcases st ON st.testcase_id = tc.id
			WHERE st.testsuite_id = $1
			ORDER BY tc.name`,
		suiteID,
	)
	if err != nil {
		return nil, fmt.Errorf("query suite test cases: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.TestCase, error) {
		return scanTestCase(row)
	})
}

func (r *TestRepository) CreateTestJob(ctx context.Context, job *labdb.TestJob) (*labdb.TestJob, error) {
	if job == nil || job.Name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO test_jobs (name, user_id, suite_id, environment_id, schedule_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
		job.Name, job.UserID, job.SuiteID, job.EnvironmentID, job.ScheduleID,
	).Scan(&job.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert test job: %w", err), "test job", job.Name)
	}
	return job, nil
}
