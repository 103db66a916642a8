package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
)

var userAuth = gateway.Auth{AccessToken: "tok", Claims: json.RawMessage(`{"sub":"u1","role":"authenticated"}`)}

func newMock(t *testing.T) (*PostgresRunner, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPostgresRunner(conn, nil), mock
}

func expectIdentity(mock sqlmock.Sqlmock, claims, role string) {
	mock.ExpectBegin()
	mock.ExpectExec(setClaimsSQL).WithArgs(claims).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET LOCAL ROLE "` + role + `"`).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestSelect_UpcomingCompetitions(t *testing.T) {
	runner, mock := newMock(t)

	expectIdentity(mock, string(userAuth.Claims), roleAuthenticated)
	mock.ExpectQuery(`SELECT row_to_json(t) FROM "competitions" AS t WHERE t."registration_deadline" >= $1 ORDER BY t."date" ASC`).
		WithArgs("2026-10-19").
		WillReturnRows(sqlmock.NewRows([]string{"row_to_json"}).
			AddRow(`{"id":"c1"}`).
			AddRow(`{"id":"c2"}`))
	mock.ExpectCommit()

	q := gateway.From("competitions").Gte("registration_deadline", models.NewDate(2026, 10, 19)).OrderBy("date", true)
	rows, err := runner.Select(context.Background(), userAuth, q)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.JSONEq(t, `{"id":"c1"}`, string(rows[0]))
	assert.JSONEq(t, `{"id":"c2"}`, string(rows[1]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_AnonymousEmptyResult(t *testing.T) {
	runner, mock := newMock(t)

	expectIdentity(mock, string(anonClaims), roleAnon)
	mock.ExpectQuery(`SELECT row_to_json(t) FROM "associations" AS t WHERE t."user_id" = $1 LIMIT 2`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"row_to_json"}))
	mock.ExpectCommit()

	rows, err := runner.Select(context.Background(), gateway.Auth{}, gateway.From("associations").Eq("user_id", "u1").WithLimit(2))

	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_ConflictIsClassified(t *testing.T) {
	runner, mock := newMock(t)

	expectIdentity(mock, string(userAuth.Claims), roleAuthenticated)
	mock.ExpectQuery(`WITH ins AS (INSERT INTO "competition_registrations" ("competition_id", "member_id", "weight") VALUES ($1, $2, $3) RETURNING *) SELECT row_to_json(ins) FROM ins`).
		WithArgs("c1", "m1", "61.5").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	row := map[string]any{"competition_id": "c1", "member_id": "m1", "weight": 61.5}
	_, err := runner.Insert(context.Background(), userAuth, "competition_registrations", row)

	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_HiddenByAccessRules(t *testing.T) {
	runner, mock := newMock(t)

	expectIdentity(mock, string(userAuth.Claims), roleAuthenticated)
	mock.ExpectQuery(`WITH ins AS (INSERT INTO "associations" ("name", "user_id") VALUES ($1, $2) RETURNING *) SELECT row_to_json(ins) FROM ins`).
		WithArgs("Judo Club", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"row_to_json"}))
	mock.ExpectCommit()

	_, err := runner.Insert(context.Background(), userAuth, "associations", map[string]any{"name": "Judo Club", "user_id": "u1"})

	assert.ErrorIs(t, err, gateway.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_SetThenWherePlaceholders(t *testing.T) {
	runner, mock := newMock(t)

	expectIdentity(mock, string(userAuth.Claims), roleAuthenticated)
	mock.ExpectQuery(`WITH upd AS (UPDATE "members" AS t SET "grade" = $1, "type" = $2 WHERE t."id" = $3 AND t."association_id" = ANY($4) RETURNING *) SELECT row_to_json(upd) FROM upd`).
		WithArgs(nil, "coach", "m1", pq.Array([]string{"a1", "a2"})).
		WillReturnRows(sqlmock.NewRows([]string{"row_to_json"}).AddRow(`{"id":"m1","type":"coach"}`))
	mock.ExpectCommit()

	q := gateway.From("members").Eq("id", "m1").In("association_id", []string{"a1", "a2"})
	rows, err := runner.Update(context.Background(), userAuth, q, map[string]any{"type": "coach", "grade": nil})

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	runner, mock := newMock(t)

	expectIdentity(mock, string(userAuth.Claims), roleAuthenticated)
	mock.ExpectExec(`DELETE FROM "members" AS t WHERE t."id" = $1`).
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := runner.Delete(context.Background(), userAuth, gateway.From("members").Eq("id", "m1"))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_RequiresFilters(t *testing.T) {
	runner, mock := newMock(t)

	err := runner.Delete(context.Background(), userAuth, gateway.From("members"))

	assert.ErrorIs(t, err, gateway.ErrInvalidQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_UnclassifiedErrorIsQueryFailed(t *testing.T) {
	runner, mock := newMock(t)

	expectIdentity(mock, string(userAuth.Claims), roleAuthenticated)
	mock.ExpectQuery(`SELECT row_to_json(t) FROM "members" AS t`).
		WillReturnError(&pq.Error{Code: "42P01", Message: `relation "members" does not exist`})
	mock.ExpectRollback()

	_, err := runner.Select(context.Background(), userAuth, gateway.From("members"))

	assert.ErrorIs(t, err, gateway.ErrQueryFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildSelect_Filters(t *testing.T) {
	tests := []struct {
		name     string
		query    *gateway.Query
		wantSQL  string
		wantArgs []any
		wantErr  error
	}{
		{
			name:     "projection and is null",
			query:    gateway.From("members").Select("id", "grade").Where("grade", gateway.OpIs, nil),
			wantSQL:  `SELECT json_build_object('id', t."id", 'grade', t."grade") FROM "members" AS t WHERE t."grade" IS NULL`,
			wantArgs: nil,
		},
		{
			name:     "descending order with neq",
			query:    gateway.From("competitions").Where("location", gateway.OpNeq, "Paris").OrderBy("date", false),
			wantSQL:  `SELECT row_to_json(t) FROM "competitions" AS t WHERE t."location" <> $1 ORDER BY t."date" DESC`,
			wantArgs: []any{"Paris"},
		},
		{
			name:    "unknown operator",
			query:   gateway.From("members").Where("id", gateway.Op("like"), "x"),
			wantErr: gateway.ErrInvalidQuery,
		},
		{
			name:    "missing table",
			query:   &gateway.Query{},
			wantErr: gateway.ErrInvalidQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, args, err := buildSelect(tt.query)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, stmt)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
