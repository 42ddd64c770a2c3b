package sdk

import (
	"context"
	"net/http"

	"github.com/gear6io/promptvalley/server/records"
)

// Records implements records.Gateway over the resources API
type Records struct {
	c *Client
}

var _ records.Gateway = (*Records)(nil)

func (r *Records) Create(ctx context.Context, resource string, rec records.Record) (records.Record, error) {
	var out records.Record
	err := r.c.sendJSON(ctx, http.MethodPost, resourcePath(resource), rec, &out)
	return out, err
}

func (r *Records) Upsert(ctx context.Context, resource string, rec records.Record) (records.Record, error) {
	var out records.Record
	err := r.c.sendJSON(ctx, http.MethodPost, resourcePath(resource, "upsert"), rec, &out)
	return out, err
}

func (r *Records) Update(ctx context.Context, resource, id string, rec records.Record) (records.Record, error) {
	var out records.Record
	err := r.c.sendJSON(ctx, http.MethodPut, resourcePath(resource, id), rec, &out)
	return out, err
}

func (r *Records) Get(ctx context.Context, resource, id string) (records.Record, error) {
	var out records.Record
	err := r.c.getJSON(ctx, resourcePath(resource, id), nil, &out)
	return out, err
}

func (r *Records) List(ctx context.Context, resource string, q records.Query) ([]records.Record, error) {
	var out []records.Record
	err := r.c.getJSON(ctx, resourcePath(resource), records.EncodeQuery(q), &out)
	return out, err
}

func (r *Records) Count(ctx context.Context, resource string, filters ...records.Filter) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := r.c.getJSON(ctx, resourcePath(resource, "count"), records.EncodeFilters(filters), &out)
	return out.Count, err
}

func (r *Records) Delete(ctx context.Context, resource string, filters ...records.Filter) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	payload := map[string]interface{}{"filters": filters}
	err := r.c.sendJSON(ctx, http.MethodPost, resourcePath(resource, "delete"), payload, &out)
	return out.Deleted, err
}

// Raw runs a read-only query on the server
func (r *Records) Raw(ctx context.Context, query string, args ...interface{}) ([]records.Record, error) {
	var out struct {
		Data []records.Record `json:"data"`
	}
	if args == nil {
		args = []interface{}{}
	}
	payload := map[string]interface{}{"sql": query, "args": args}
	err := r.c.sendJSON(ctx, http.MethodPost, "/api/v1/query", payload, &out)
	return out.Data, err
}
