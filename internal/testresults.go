package internal

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
	"go.uber.org/zap"
)

const testResultColumns = `id, objecttype, testcase_id, testimplementation, tester_id, environment_id, parent_id,
	starttime, endtime, arguments, result, diagnostic, resultslocation, testversion, note, valid, data_id`

func scanTestResult(row pgx.Row) (labdb.TestResult, error) {
	var (
		tr         labdb.TestResult
		objectType int16
		code       int16
	)
	err := row.Scan(&tr.ID, &objectType, &tr.TestCaseID, &tr.TestImplementation, &tr.TesterID, &tr.EnvironmentID, &tr.ParentID,
		&tr.StartTime, &tr.EndTime, &tr.Arguments, &code, &tr.Diagnostic, &tr.ResultsLocation, &tr.TestVersion, &tr.Note, &tr.Valid, &tr.DataID)
	tr.ObjectType = labdb.ObjectType(objectType)
	tr.Result = labdb.TestResultCode(code)
	tr.StartTime = nullableTime(tr.StartTime)
	tr.EndTime = nullableTime(tr.EndTime)
	return tr, err
}

func (r *TestRepository) queryResults(ctx context.Context, sql string, args ...any) ([]labdb.TestResult, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query test results: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.TestResult, error) {
		return scanTestResult(row)
	})
}

// RecordResult stores one run outcome. Links to testers, environments, test
// cases and parent results are checked by foreign keys.
func (r *TestRepository) RecordResult(ctx context.Context, result *labdb.TestResult) (*labdb.TestResult, error) {
	if result == nil {
		return nil, labdb.NewValidationError("result", "is required")
	}
	if result.ObjectType < labdb.ObjectModule || result.ObjectType > labdb.ObjectUnknown {
		return nil, labdb.NewValidationError("objectType", fmt.Sprintf("unknown object type %d", int16(result.ObjectType)))
	}
	if !slices.Contains(labdb.AllResultCodes, result.Result) {
		return nil, labdb.NewValidationError("result", fmt.Sprintf("unknown test result %d", int16(result.Result)))
	}
	if result.StartTime != nil && result.EndTime != nil && result.EndTime.Before(*result.StartTime) {
		return nil, labdb.NewValidationError("endTime", "precedes start time")
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO test_results (objecttype, testcase_id, testimplementation, tester_id, environment_id, parent_id,
			starttime, endtime, arguments, result, diagnostic, resultslocation, testversion, note, valid, data_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING id`,
		int16(result.ObjectType), result.TestCaseID, result.TestImplementation, result.TesterID, result.EnvironmentID, result.ParentID,
		result.StartTime, result.EndTime, result.Arguments, int16(result.Result), result.Diagnostic, result.ResultsLocation,
		result.TestVersion, result.Note, result.Valid, result.DataID,
	).Scan(&result.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert test result: %w", err), "test result", result.TestImplementation)
	}
	zap.S().Debugw("recorded test result", "id", result.ID, "objectType", result.ObjectType.String(), "result", result.Result.String())
	return result, nil
}

func (r *TestRepository) GetResult(ctx context.Context, id int64) (*labdb.TestResult, error) {
	tr, err := scanTestResult(r.pool.QueryRow(ctx, "SELECT "+testResultColumns+" FROM test_results WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, "test result", idKey(id))
	}
	return &tr, nil
}

// ChildResults lists the results recorded under parentID in run order.
func (r *TestRepository) ChildResults(ctx context.Context, parentID int64) ([]labdb.TestResult, error) {
	return r.queryResults(ctx,
		"SELECT "+testResultColumns+" FROM test_results WHERE parent_id = $1 ORDER BY starttime NULLS LAST, id",
		parentID,
	)
}

// ResultsForTestCase lists the newest results first. A limit of zero or less
// returns them all.
func (r *TestRepository) ResultsForTestCase(ctx context.Context, testCaseID int64, limit int) ([]labdb.TestResult, error) {
	return r.queryResults(ctx,
		"SELECT "+testResultColumns+" FROM test_results WHERE testcase_id = $1 ORDER BY starttime DESC NULLS LAST, id DESC LIMIT NULLIF($2, 0)",
		testCaseID, int64(max(limit, 0)),
	)
}

func (r *TestRepository) LatestResult(ctx context.Context, testCaseID int64) (*labdb.TestResult, error) {
	tr, err := scanTestResult(r.pool.QueryRow(ctx,
		"SELECT "+testResultColumns+" FROM test_results WHERE testcase_id = $1 ORDER BY starttime DESC NULLS LAST, id DESC LIMIT 1",
		testCaseID,
	))
	if err != nil {
		return nil, mapError(err, "test result for test case", idKey(testCaseID))
	}
	return &tr, nil
}

// ResultSummary counts the children of parentID by result code. Codes with
// no results are absent.
func (r *TestRepository) ResultSummary(ctx context.Context, parentID int64) (labdb.ResultSummary, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT result, count(*) FROM test_results WHERE parent_id = $1 GROUP BY result",
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize test results: %w", err)
	}
	type bucket struct {
		code  int16
		count int64
	}
	buckets, err := collectRows(rows, func(row pgx.Rows) (bucket, error) {
		var b bucket
		err := row.Scan(&b.code, &b.count)
		return b, err
	})
	if err != nil {
		return nil, err
	}
	summary := make(labdb.ResultSummary, len(buckets))
	for _, b := range buckets {
		summary[labdb.TestResultCode(b.code)] = int(b.count)
	}
	return summary, nil
}

// ResultsBetween lists results that started in [from, to).
func (r *TestRepository) ResultsBetween(ctx context.Context, from, to time.Time) ([]labdb.TestResult, error) {
	if !to.After(from) {
		return nil, labdb.NewValidationError("to", "must be after from")
	}
	return r.queryResults(ctx,
		"SELECT "+testResultColumns+" FROM test_results WHERE starttime >= $1 AND starttime < $2 ORDER BY starttime, id",
		from.UTC(), to.UTC(),
	)
}

// AttachResultData stores data as a JSON document and points the result at
// it.
func (r *TestRepository) AttachResultData(ctx context.Context, resultID int64, data any, note string) (*labdb.TestResultData, error) {
	encoded, err := marshalValue(data)
	if err != nil {
		return nil, err
	}
	rd := &labdb.TestResultData{Data: encoded, Note: note}
	err = withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			"INSERT INTO test_results_data (data, note) VALUES ($1, $2) RETURNING id",
			encoded, note,
		).Scan(&rd.ID); err != nil {
			return fmt.Errorf("insert test result data: %w", err)
		}
		tag, err := tx.Exec(ctx, "UPDATE test_results SET data_id = $1 WHERE id = $2", rd.ID, resultID)
		if err != nil {
			return fmt.Errorf("link test result data: %w", err)
		}
		return expectAffected(tag, "test result", idKey(resultID))
	})
	if err != nil {
		return nil, err
	}
	return rd, nil
}
