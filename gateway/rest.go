package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const restPrefix = "/rest/v1/"

// restRunner talks to the PostgREST data API. The caller's access token is
// sent as the bearer so row-level security applies to every request.
type restRunner struct {
	ep *endpoint
}

// NewRESTRunner returns a Runner backed by the project's PostgREST API.
func NewRESTRunner(projectURL, apiKey string, client *http.Client) (Runner, error) {
	ep, err := newEndpoint(projectURL, apiKey, client)
	if err != nil {
		return nil, err
	}
	return &restRunner{ep: ep}, nil
}

func (r *restRunner) Select(ctx context.Context, auth Auth, q *Query) ([]json.RawMessage, error) {
	params, err := restParams(q, true)
	if err != nil {
		return nil, err
	}
	var rows []json.RawMessage
	err = r.ep.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix + q.Table,
		query:  params,
		bearer: auth.AccessToken,
	}, &rows)
	if err != nil {
		return nil, wrapQueryError("select", q.Table, err)
	}
	if rows == nil {
		rows = []json.RawMessage{}
	}
	return rows, nil
}

func (r *restRunner) Insert(ctx context.Context, auth Auth, table string, row any) (json.RawMessage, error) {
	if table == "" {
		return nil, fmt.Errorf("%w: table is required", ErrInvalidQuery)
	}
	var rows []json.RawMessage
	err := r.ep.do(ctx, request{
		method:  http.MethodPost,
		path:    restPrefix + table,
		bearer:  auth.AccessToken,
		headers: http.Header{"Prefer": {"return=representation"}},
		body:    row,
	}, &rows)
	if err != nil {
		return nil, wrapQueryError("insert", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s returned no row: %w", table, ErrForbidden)
	}
	return rows[0], nil
}

func (r *restRunner) Update(ctx context.Context, auth Auth, q *Query, patch any) ([]json.RawMessage, error) {
	params, err := restParams(q, false)
	if err != nil {
		return nil, err
	}
	if len(q.Filters) == 0 {
		return nil, fmt.Errorf("%w: update without filters", ErrInvalidQuery)
	}
	var rows []json.RawMessage
	err = r.ep.do(ctx, request{
		method:  http.MethodPatch,
		path:    restPrefix + q.Table,
		query:   params,
		bearer:  auth.AccessToken,
		headers: http.Header{"Prefer": {"return=representation"}},
		body:    patch,
	}, &rows)
	if err != nil {
		return nil, wrapQueryError("update", q.Table, err)
	}
	if rows == nil {
		rows = []json.RawMessage{}
	}
	return rows, nil
}

func (r *restRunner) Delete(ctx context.Context, auth Auth, q *Query) error {
	params, err := restParams(q, false)
	if err != nil {
		return err
	}
	if len(q.Filters) == 0 {
		return fmt.Errorf("%w: delete without filters", ErrInvalidQuery)
	}
	err = r.ep.do(ctx, request{
		method: http.MethodDelete,
		path:   restPrefix + q.Table,
		query:  params,
		bearer: auth.AccessToken,
	}, nil)
	if err != nil {
		return wrapQueryError("delete", q.Table, err)
	}
	return nil
}

func wrapQueryError(op, table string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s %s: %w", op, table, apiErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
	return fmt.Errorf("%s %s: %w: %v", op, table, ErrQueryFailed, err)
}

// restParams renders q as PostgREST query parameters:
// select=*&user_id=eq.u1&order=date.asc&limit=2
func restParams(q *Query, read bool) (url.Values, error) {
	if q == nil || q.Table == "" {
		return nil, fmt.Errorf("%w: table is required", ErrInvalidQuery)
	}
	params := url.Values{}
	if read {
		if len(q.Columns) == 0 {
			params.Set("select", "*")
		} else {
			params.Set("select", strings.Join(q.Columns, ","))
		}
	}
	for _, f := range q.Filters {
		value, err := restFilterValue(f)
		if err != nil {
			return nil, err
		}
		params.Add(f.Column, string(f.Op)+"."+value)
	}
	if read && len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := "asc"
			if o.Descending {
				dir = "desc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if read && q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params, nil
}

func restFilterValue(f Filter) (string, error) {
	if f.Column == "" {
		return "", fmt.Errorf("%w: filter without column", ErrInvalidQuery)
	}
	switch f.Op {
	case OpIn:
		values, ok := f.Value.([]string)
		if !ok {
			return "", fmt.Errorf("%w: %s.in expects a list of strings", ErrInvalidQuery, f.Column)
		}
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = quoteListItem(v)
		}
		return "(" + strings.Join(quoted, ",") + ")", nil
	case OpIs:
		switch v := f.Value.(type) {
		case nil:
			return "null", nil
		case bool:
			return strconv.FormatBool(v), nil
		}
		return "", fmt.Errorf("%w: %s.is expects null or a boolean", ErrInvalidQuery, f.Column)
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		return FormatValue(f.Value)
	}
	return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, f.Op)
}

func quoteListItem(v string) string {
	if strings.ContainsAny(v, `,()" `) {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}

// FormatValue renders a filter value the way both runners send it.
func FormatValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case time.Time:
		return val.UTC().Format(time.RFC3339), nil
	case fmt.Stringer:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("%w: unsupported filter value %T", ErrInvalidQuery, v)
}
