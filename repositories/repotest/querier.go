// Package repotest provides an in-memory gateway.Querier that evaluates
// queries the way the data API does, for tests of code built on the
// repositories.
package repotest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dosada05/association-portal/gateway"
)

type Row = map[string]any

// Querier stores rows per table. Safe for concurrent use.
type Querier struct {
	mu      sync.Mutex
	tables  map[string][]Row
	unique  map[string][][]string
	fail    map[string]error
	queries []*gateway.Query
}

var _ gateway.Querier = (*Querier)(nil)

func New() *Querier {
	return &Querier{
		tables: make(map[string][]Row),
		unique: make(map[string][][]string),
		fail:   make(map[string]error),
	}
}

// Seed adds rows to table as they are, after a JSON round trip so that
// typed values look the way the API returns them.
func (q *Querier) Seed(table string, rows ...any) *Querier {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range rows {
		q.tables[table] = append(q.tables[table], toRow(r))
	}
	return q
}

// Unique makes inserts into table fail with a unique violation when the
// given columns match an existing row.
func (q *Querier) Unique(table string, columns ...string) *Querier {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.unique[table] = append(q.unique[table], columns)
	return q
}

// Fail makes every operation on table return err. A nil err clears it.
func (q *Querier) Fail(table string, err error) *Querier {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err == nil {
		delete(q.fail, table)
	} else {
		q.fail[table] = err
	}
	return q
}

// Rows returns a copy of the rows stored in table.
func (q *Querier) Rows(table string) []Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Row, len(q.tables[table]))
	copy(out, q.tables[table])
	return out
}

// Queries returns every read issued so far.
func (q *Querier) Queries() []*gateway.Query {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*gateway.Query(nil), q.queries...)
}

func (q *Querier) RunQuery(ctx context.Context, query *gateway.Query) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queries = append(q.queries, query)
	if err := q.fail[query.Table]; err != nil {
		return nil, err
	}

	var matched []Row
	for _, row := range q.tables[query.Table] {
		ok, err := matches(row, query.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, row)
		}
	}
	if len(query.Order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range query.Order {
				a, b := text(matched[i][o.Column]), text(matched[j][o.Column])
				if a == b {
					continue
				}
				if o.Descending {
					return a > b
				}
				return a < b
			}
			return false
		})
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return encode(matched)
}

func (q *Querier) Insert(ctx context.Context, table string, row any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.fail[table]; err != nil {
		return nil, err
	}

	r := toRow(row)
	for _, cols := range q.unique[table] {
		for _, existing := range q.tables[table] {
			if sameColumns(existing, r, cols) {
				return nil, &gateway.APIError{Status: 409, Code: "23505", Message: "duplicate key value violates unique constraint"}
			}
		}
	}
	if _, ok := r["id"]; !ok {
		r["id"] = uuid.NewString()
	}
	if _, ok := r["created_at"]; !ok {
		r["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	q.tables[table] = append(q.tables[table], r)
	return json.Marshal(r)
}

func (q *Querier) Update(ctx context.Context, query *gateway.Query, patch any) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.fail[query.Table]; err != nil {
		return nil, err
	}
	if len(query.Filters) == 0 {
		return nil, fmt.Errorf("%w: update without filters", gateway.ErrInvalidQuery)
	}

	p := toRow(patch)
	var updated []Row
	for _, row := range q.tables[query.Table] {
		ok, err := matches(row, query.Filters)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for k, v := range p {
			row[k] = v
		}
		updated = append(updated, row)
	}
	return encode(updated)
}

func (q *Querier) Delete(ctx context.Context, query *gateway.Query) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.fail[query.Table]; err != nil {
		return err
	}
	if len(query.Filters) == 0 {
		return fmt.Errorf("%w: delete without filters", gateway.ErrInvalidQuery)
	}

	kept := q.tables[query.Table][:0]
	for _, row := range q.tables[query.Table] {
		ok, err := matches(row, query.Filters)
		if err != nil {
			return err
		}
		if !ok {
			kept = append(kept, row)
		}
	}
	q.tables[query.Table] = kept
	return nil
}

func matches(row Row, filters []gateway.Filter) (bool, error) {
	for _, f := range filters {
		v := row[f.Column]
		switch f.Op {
		case gateway.OpIs:
			if f.Value == nil {
				if v != nil {
					return false, nil
				}
				continue
			}
			if v != f.Value {
				return false, nil
			}
			continue
		case gateway.OpIn:
			values, _ := f.Value.([]string)
			found := false
			for _, want := range values {
				if v != nil && text(v) == want {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
			continue
		}

		want, err := gateway.FormatValue(f.Value)
		if err != nil {
			return false, err
		}
		if v == nil {
			return false, nil
		}
		got := text(v)
		var ok bool
		switch f.Op {
		case gateway.OpEq:
			ok = got == want
		case gateway.OpNeq:
			ok = got != want
		case gateway.OpGt:
			ok = got > want
		case gateway.OpGte:
			ok = got >= want
		case gateway.OpLt:
			ok = got < want
		case gateway.OpLte:
			ok = got <= want
		default:
			return false, fmt.Errorf("%w: unknown operator %q", gateway.ErrInvalidQuery, f.Op)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func sameColumns(a, b Row, cols []string) bool {
	for _, c := range cols {
		if text(a[c]) != text(b[c]) {
			return false
		}
	}
	return true
}

// text compares values the way they travel in filters. Lexical order is
// right for ISO dates, which is all the ordering tests need.
func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	b, _ := json.Marshal(v)
	return strings.TrimSpace(string(b))
}

func toRow(v any) Row {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("repotest: encode row: %v", err))
	}
	r := Row{}
	if err := json.Unmarshal(raw, &r); err != nil {
		panic(fmt.Sprintf("repotest: row must be an object: %v", err))
	}
	return r
}

func encode(rows []Row) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// Runner adapts q to gateway.Runner so it can back a gateway.Service. The
// caller identity is ignored.
func (q *Querier) Runner() gateway.Runner { return runner{q: q} }

type runner struct{ q *Querier }

func (r runner) Select(ctx context.Context, _ gateway.Auth, query *gateway.Query) ([]json.RawMessage, error) {
	return r.q.RunQuery(ctx, query)
}

func (r runner) Insert(ctx context.Context, _ gateway.Auth, table string, row any) (json.RawMessage, error) {
	return r.q.Insert(ctx, table, row)
}

func (r runner) Update(ctx context.Context, _ gateway.Auth, query *gateway.Query, patch any) ([]json.RawMessage, error) {
	return r.q.Update(ctx, query, patch)
}

func (r runner) Delete(ctx context.Context, _ gateway.Auth, query *gateway.Query) error {
	return r.q.Delete(ctx, query)
}
