package sdk

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"

	"github.com/gear6io/promptvalley/server/medialib"
	api "github.com/gear6io/promptvalley/server/protocols/http"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/gear6io/promptvalley/server/transfer"
)

// Import uploads a spreadsheet for resource. With validateOnly the server
// parses and validates the file but writes nothing.
func (c *Client) Import(ctx context.Context, resource, filename string, r io.Reader, validateOnly bool) (*api.ImportResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "create form file")
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, errors.Wrap(err, "copy file")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart writer")
	}

	q := url.Values{}
	if validateOnly {
		q.Set("validate", "true")
	}

	var out api.ImportResponse
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/v1/import/" + url.PathEscape(resource),
		query:       q,
		body:        &buf,
		size:        int64(buf.Len()),
		contentType: w.FormDataContentType(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Export downloads every record of resource as a spreadsheet
func (c *Client) Export(ctx context.Context, resource string, format sheet.Format) (*transfer.File, error) {
	return c.download(ctx, "/api/v1/export/"+url.PathEscape(resource), format)
}

// Template downloads the import template of resource
func (c *Client) Template(ctx context.Context, resource string, format sheet.Format) (*transfer.File, error) {
	return c.download(ctx, "/api/v1/templates/"+url.PathEscape(resource), format)
}

func (c *Client) download(ctx context.Context, path string, format sheet.Format) (*transfer.File, error) {
	resp, err := c.send(ctx, request{
		method: http.MethodGet,
		path:   path,
		query:  url.Values{"format": {string(format)}},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	file := &transfer.File{
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		file.Name = params["filename"]
	}
	return file, nil
}

// PurgeBucket empties and deletes a bucket; confirm must repeat its name
func (c *Client) PurgeBucket(ctx context.Context, id, confirm string) (*medialib.PurgeReport, error) {
	var out medialib.PurgeReport
	err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/api/v1/media/buckets/" + url.PathEscape(id),
		query:  url.Values{"confirm": {confirm}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
