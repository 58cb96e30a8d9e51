package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestIdent(t *testing.T) {
	assert.Equal(t, `"vehicles"`, Ident("vehicles").Sanitize())
	assert.Equal(t, `"audit"."vehicles"`, Ident("audit.vehicles").Sanitize())
}

func TestCopyRows(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		n, err := CopyRows(context.Background(), nil, "price_points", []string{"a"}, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("success", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectCopyFrom(pgx.Identifier{"price_points"}, []string{"run_id", "car_id"}).WillReturnResult(2)

		n, err := CopyRows(context.Background(), mock, "price_points", []string{"run_id", "car_id"}, [][]any{{"r", "car_1"}, {"r", "car_2"}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectCopyFrom(pgx.Identifier{"price_points"}, []string{"run_id"}).WillReturnError(errors.New("copy failed"))

		_, err := CopyRows(context.Background(), mock, "price_points", []string{"run_id"}, [][]any{{"r"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "copy into price_points")
	})
}

func TestUpsert_Validation(t *testing.T) {
	n, err := Upsert(context.Background(), nil, UpsertSpec{Table: "vehicles"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = Upsert(context.Background(), nil, UpsertSpec{Table: "vehicles", Keys: []string{"id"}}, [][]any{{1}})
	assert.ErrorContains(t, err, "no columns")

	_, err = Upsert(context.Background(), nil, UpsertSpec{Table: "vehicles", Columns: []string{"id"}}, [][]any{{1}})
	assert.ErrorContains(t, err, "no conflict keys")
}

func TestUpsert(t *testing.T) {
	mock := newMock(t)
	spec := UpsertSpec{Table: "vehicles", Columns: []string{"id", "brand"}, Keys: []string{"id"}}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_vehicles" \(LIKE "vehicles" INCLUDING DEFAULTS\)`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_vehicles"}, []string{"id", "brand"}).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "vehicles" .* ON CONFLICT \("id"\) DO UPDATE SET "brand" = EXCLUDED."brand"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := Upsert(context.Background(), mock, spec, [][]any{{"car_1", "Kia"}, {"car_2", "BMW"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUpsert_MergeFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	spec := UpsertSpec{Table: "vehicles", Columns: []string{"id", "brand"}, Keys: []string{"id"}}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_vehicles"}, []string{"id", "brand"}).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO`).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	_, err := Upsert(context.Background(), mock, spec, [][]any{{"car_1", "Kia"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge into vehicles")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeSQL(t *testing.T) {
	got := MergeSQL(UpsertSpec{Table: "audit.vehicles", Columns: []string{"id", "brand", "price"}, Keys: []string{"id"}}, "_stage")
	assert.Equal(t,
		`INSERT INTO "audit"."vehicles" ("id", "brand", "price") SELECT "id", "brand", "price" FROM "_stage" ON CONFLICT ("id") DO UPDATE SET "brand" = EXCLUDED."brand", "price" = EXCLUDED."price"`,
		got)

	keysOnly := MergeSQL(UpsertSpec{Table: "t", Columns: []string{"id"}, Keys: []string{"id"}}, "_s")
	assert.Contains(t, keysOnly, "DO NOTHING")
}
