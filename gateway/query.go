package gateway

import (
	"context"
	"encoding/json"
)

// Op is a row filter operator, named after the PostgREST operators.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIs  Op = "is"
	OpIn  Op = "in"
)

type Filter struct {
	Column string
	Op     Op
	Value  any
}

type Order struct {
	Column     string
	Descending bool
}

// Query describes a read against one table: which rows (Filters), in which
// order and how many. Writes reuse Filters to address rows.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
}

// From starts a query against table selecting every column.
func From(table string) *Query {
	return &Query{Table: table}
}

func (q *Query) Select(columns ...string) *Query {
	q.Columns = append(q.Columns, columns...)
	return q
}

func (q *Query) Where(column string, op Op, value any) *Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: op, Value: value})
	return q
}

func (q *Query) Eq(column string, value any) *Query  { return q.Where(column, OpEq, value) }
func (q *Query) Gte(column string, value any) *Query { return q.Where(column, OpGte, value) }
func (q *Query) Lte(column string, value any) *Query { return q.Where(column, OpLte, value) }

// In matches rows whose column is one of values.
func (q *Query) In(column string, values []string) *Query { return q.Where(column, OpIn, values) }

func (q *Query) OrderBy(column string, ascending bool) *Query {
	q.Order = append(q.Order, Order{Column: column, Descending: !ascending})
	return q
}

func (q *Query) WithLimit(n int) *Query {
	q.Limit = n
	return q
}

// Auth carries the caller identity a Runner forwards to the backend, so that
// the backend's access rules see the same user the session belongs to.
type Auth struct {
	AccessToken string
	// Claims are the decoded access token claims as JSON.
	Claims json.RawMessage
}

// Runner executes queries against the hosted database on behalf of a caller.
type Runner interface {
	Select(ctx context.Context, auth Auth, q *Query) ([]json.RawMessage, error)
	Insert(ctx context.Context, auth Auth, table string, row any) (json.RawMessage, error)
	Update(ctx context.Context, auth Auth, q *Query, patch any) ([]json.RawMessage, error)
	Delete(ctx context.Context, auth Auth, q *Query) error
}

// Querier is the data-access surface bound to one client's identity.
type Querier interface {
	RunQuery(ctx context.Context, q *Query) ([]json.RawMessage, error)
	Insert(ctx context.Context, table string, row any) (json.RawMessage, error)
	Update(ctx context.Context, q *Query, patch any) ([]json.RawMessage, error)
	Delete(ctx context.Context, q *Query) error
}
