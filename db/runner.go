package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/lib/pq"
)

const (
	roleAuthenticated = "authenticated"
	roleAnon          = "anon"

	setClaimsSQL = "SELECT set_config('request.jwt.claims', $1, true)"
)

var anonClaims = []byte(`{"role":"anon"}`)

var sqlOps = map[gateway.Op]string{
	gateway.OpEq:  "=",
	gateway.OpNeq: "<>",
	gateway.OpGt:  ">",
	gateway.OpGte: ">=",
	gateway.OpLt:  "<",
	gateway.OpLte: "<=",
}

// PostgresRunner implements gateway.Runner on a *sql.DB. Each call runs in
// its own transaction that first sets request.jwt.claims and switches to
// the authenticated (or anon) role, the same way the REST API does.
type PostgresRunner struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresRunner(db *sql.DB, logger *slog.Logger) *PostgresRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRunner{db: db, logger: logger}
}

var _ gateway.Runner = (*PostgresRunner)(nil)

func (r *PostgresRunner) Select(ctx context.Context, auth gateway.Auth, q *gateway.Query) ([]json.RawMessage, error) {
	stmt, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	var rows []json.RawMessage
	err = r.inTx(ctx, auth, func(tx *sql.Tx) error {
		rows, err = queryJSON(ctx, tx, stmt, args)
		return err
	})
	if err != nil {
		return nil, r.mapError("select", q.Table, err)
	}
	return rows, nil
}

func (r *PostgresRunner) Insert(ctx context.Context, auth gateway.Auth, table string, row any) (json.RawMessage, error) {
	stmt, args, err := buildInsert(table, row)
	if err != nil {
		return nil, err
	}
	var rows []json.RawMessage
	err = r.inTx(ctx, auth, func(tx *sql.Tx) error {
		rows, err = queryJSON(ctx, tx, stmt, args)
		return err
	})
	if err != nil {
		return nil, r.mapError("insert", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s returned no row: %w", table, gateway.ErrForbidden)
	}
	return rows[0], nil
}

func (r *PostgresRunner) Update(ctx context.Context, auth gateway.Auth, q *gateway.Query, patch any) ([]json.RawMessage, error) {
	stmt, args, err := buildUpdate(q, patch)
	if err != nil {
		return nil, err
	}
	var rows []json.RawMessage
	err = r.inTx(ctx, auth, func(tx *sql.Tx) error {
		rows, err = queryJSON(ctx, tx, stmt, args)
		return err
	})
	if err != nil {
		return nil, r.mapError("update", q.Table, err)
	}
	return rows, nil
}

func (r *PostgresRunner) Delete(ctx context.Context, auth gateway.Auth, q *gateway.Query) error {
	stmt, args, err := buildDelete(q)
	if err != nil {
		return err
	}
	err = r.inTx(ctx, auth, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, stmt, args...)
		return err
	})
	if err != nil {
		return r.mapError("delete", q.Table, err)
	}
	return nil
}

func (r *PostgresRunner) inTx(ctx context.Context, auth gateway.Auth, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.Warn("rollback failed", slog.Any("error", rbErr))
		}
	}()

	claims, role := []byte(auth.Claims), roleAuthenticated
	if len(claims) == 0 {
		claims, role = anonClaims, roleAnon
	}
	if _, err := tx.ExecContext(ctx, setClaimsSQL, string(claims)); err != nil {
		return fmt.Errorf("apply claims: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "SET LOCAL ROLE "+pq.QuoteIdentifier(role)); err != nil {
		return fmt.Errorf("switch role: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func queryJSON(ctx context.Context, tx *sql.Tx, stmt string, args []any) ([]json.RawMessage, error) {
	rows, err := tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []json.RawMessage{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(raw))
	}
	return out, rows.Err()
}

// mapError turns driver errors into the gateway sentinels. Postgres error
// codes are the same ones the REST API reports, so gateway.APIError does
// the classification.
func (r *PostgresRunner) mapError(op, table string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		apiErr := &gateway.APIError{Code: string(pqErr.Code), Message: pqErr.Message}
		if apiErr.Unwrap() != nil {
			return fmt.Errorf("%s %s: %w", op, table, apiErr)
		}
		r.logger.Debug("unclassified postgres error",
			slog.String("op", op), slog.String("table", table), slog.String("code", string(pqErr.Code)))
	}
	return fmt.Errorf("%s %s: %w: %v", op, table, gateway.ErrQueryFailed, err)
}

// buildSelect renders
//
//	SELECT row_to_json(t) FROM "tbl" AS t WHERE t."c" = $1 ORDER BY t."d" ASC LIMIT n
func buildSelect(q *gateway.Query) (string, []any, error) {
	if q == nil || q.Table == "" {
		return "", nil, fmt.Errorf("%w: table is required", gateway.ErrInvalidQuery)
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(projection(q.Columns))
	b.WriteString(" FROM ")
	b.WriteString(pq.QuoteIdentifier(q.Table))
	b.WriteString(" AS t")

	where, args, err := buildWhere(q.Filters, nil)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(where)

	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			parts = append(parts, column(o.Column)+" "+dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	return b.String(), args, nil
}

func projection(columns []string) string {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return "row_to_json(t)"
	}
	pairs := make([]string, 0, len(columns))
	for _, c := range columns {
		pairs = append(pairs, pq.QuoteLiteral(c)+", "+column(c))
	}
	return "json_build_object(" + strings.Join(pairs, ", ") + ")"
}

func column(name string) string {
	return "t." + pq.QuoteIdentifier(name)
}

// buildWhere appends the filters as placeholders continuing after args.
func buildWhere(filters []gateway.Filter, args []any) (string, []any, error) {
	if len(filters) == 0 {
		return "", args, nil
	}
	conds := make([]string, 0, len(filters))
	for _, f := range filters {
		if f.Column == "" {
			return "", nil, fmt.Errorf("%w: filter without column", gateway.ErrInvalidQuery)
		}
		col := column(f.Column)
		switch f.Op {
		case gateway.OpIn:
			values, ok := f.Value.([]string)
			if !ok {
				return "", nil, fmt.Errorf("%w: %s.in expects a list of strings", gateway.ErrInvalidQuery, f.Column)
			}
			args = append(args, pq.Array(values))
			conds = append(conds, fmt.Sprintf("%s = ANY($%d)", col, len(args)))
		case gateway.OpIs:
			switch v := f.Value.(type) {
			case nil:
				conds = append(conds, col+" IS NULL")
			case bool:
				conds = append(conds, col+" IS "+strings.ToUpper(strconv.FormatBool(v)))
			default:
				return "", nil, fmt.Errorf("%w: %s.is expects null or a boolean", gateway.ErrInvalidQuery, f.Column)
			}
		default:
			op, ok := sqlOps[f.Op]
			if !ok {
				return "", nil, fmt.Errorf("%w: unknown operator %q", gateway.ErrInvalidQuery, f.Op)
			}
			value, err := gateway.FormatValue(f.Value)
			if err != nil {
				return "", nil, err
			}
			args = append(args, value)
			conds = append(conds, fmt.Sprintf("%s %s $%d", col, op, len(args)))
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// buildInsert renders
//
//	WITH ins AS (INSERT INTO "tbl" ("a", "b") VALUES ($1, $2) RETURNING *) SELECT row_to_json(ins) FROM ins
func buildInsert(table string, row any) (string, []any, error) {
	if table == "" {
		return "", nil, fmt.Errorf("%w: table is required", gateway.ErrInvalidQuery)
	}
	cols, args, err := rowValues(row)
	if err != nil {
		return "", nil, err
	}
	quoted := make([]string, len(cols))
	holders := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		holders[i] = "$" + strconv.Itoa(i+1)
	}
	stmt := fmt.Sprintf("WITH ins AS (INSERT INTO %s (%s) VALUES (%s) RETURNING *) SELECT row_to_json(ins) FROM ins",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(holders, ", "))
	return stmt, args, nil
}

// buildUpdate renders
//
//	WITH upd AS (UPDATE "tbl" AS t SET "a" = $1 WHERE t."id" = $2 RETURNING *) SELECT row_to_json(upd) FROM upd
func buildUpdate(q *gateway.Query, patch any) (string, []any, error) {
	if q == nil || q.Table == "" {
		return "", nil, fmt.Errorf("%w: table is required", gateway.ErrInvalidQuery)
	}
	if len(q.Filters) == 0 {
		return "", nil, fmt.Errorf("%w: update without filters", gateway.ErrInvalidQuery)
	}
	cols, args, err := rowValues(patch)
	if err != nil {
		return "", nil, err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), i+1)
	}
	where, args, err := buildWhere(q.Filters, args)
	if err != nil {
		return "", nil, err
	}
	stmt := fmt.Sprintf("WITH upd AS (UPDATE %s AS t SET %s%s RETURNING *) SELECT row_to_json(upd) FROM upd",
		pq.QuoteIdentifier(q.Table), strings.Join(sets, ", "), where)
	return stmt, args, nil
}

func buildDelete(q *gateway.Query) (string, []any, error) {
	if q == nil || q.Table == "" {
		return "", nil, fmt.Errorf("%w: table is required", gateway.ErrInvalidQuery)
	}
	if len(q.Filters) == 0 {
		return "", nil, fmt.Errorf("%w: delete without filters", gateway.ErrInvalidQuery)
	}
	where, args, err := buildWhere(q.Filters, nil)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + pq.QuoteIdentifier(q.Table) + " AS t" + where, args, nil
}

// rowValues flattens a row through its JSON form, so the same struct tags
// drive both runners. Columns come back sorted.
func rowValues(row any) ([]string, []any, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode row: %v", gateway.ErrInvalidQuery, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, nil, fmt.Errorf("%w: row must encode to a JSON object", gateway.ErrInvalidQuery)
	}
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("%w: row has no columns", gateway.ErrInvalidQuery)
	}

	cols := make([]string, 0, len(fields))
	for c := range fields {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	for i, c := range cols {
		switch v := fields[c].(type) {
		case nil, string, bool:
			args[i] = v
		case json.Number:
			args[i] = v.String()
		default:
			nested, err := json.Marshal(v)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: encode %s: %v", gateway.ErrInvalidQuery, c, err)
			}
			args[i] = string(nested)
		}
	}
	return cols, args, nil
}
