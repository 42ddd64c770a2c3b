package http

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/medialib"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/gear6io/promptvalley/server/storage/memory"
	"github.com/gear6io/promptvalley/server/transfer"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := records.Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := storage.NewService(memory.NewMemoryStorage(), storage.NewBucketStore(store.DB()), "http://cdn.test", zerolog.Nop())
	srv, err := NewServer(config.HTTPConfig{}, Services{
		Records:  store,
		Storage:  svc,
		Importer: transfer.NewImporter(store, 0, zerolog.Nop()),
		Exporter: transfer.NewExporter(store, 0, zerolog.Nop()),
		Library:  medialib.NewLibrary(svc, nil, zerolog.Nop()),
	}, zerolog.Nop())
	require.NoError(t, err)
	return srv
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) json(path string) gjson.Result {
	return gjson.GetBytes(r.body, path)
}

func call(t *testing.T, srv *Server, req *http.Request) response {
	t.Helper()
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: body}
}

func send(t *testing.T, srv *Server, method, target, body string) response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return call(t, srv, req)
}

func upload(t *testing.T, srv *Server, target, name, content string) response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return call(t, srv, req)
}

func TestServerEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp := send(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "healthy", resp.json("status").String())

	resp = send(t, srv, http.MethodGet, "/info", "")
	assert.Equal(t, "promptvalley-http", resp.json("server").String())
	assert.NotEmpty(t, resp.json("endpoints").Array())

	resp = send(t, srv, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "http.route_not_found", resp.json("error.code").String())

	assert.Equal(t, "0.0.0.0:2847", srv.Address())
}

func TestRecordRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp := send(t, srv, http.MethodPost, "/api/v1/resources/tags", `{"id":"t1","name":"seo","slug":"seo"}`)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	assert.Equal(t, "t1", resp.json("id").String())

	t.Run("UniqueViolationCarriesConstraint", func(t *testing.T) {
		resp := send(t, srv, http.MethodPost, "/api/v1/resources/tags", `{"id":"t2","name":"seo"}`)
		assert.Equal(t, http.StatusConflict, resp.status)
		assert.Equal(t, "records.unique_violation", resp.json("error.code").String())
		assert.Equal(t, records.CodeUniqueViolation, resp.json("error.constraint.code").String())
		assert.Equal(t, "name", resp.json("error.constraint.column").String())
	})

	t.Run("Get", func(t *testing.T) {
		resp := send(t, srv, http.MethodGet, "/api/v1/resources/tags/t1", "")
		assert.Equal(t, http.StatusOK, resp.status)
		assert.Equal(t, "seo", resp.json("name").String())

		resp = send(t, srv, http.MethodGet, "/api/v1/resources/tags/missing", "")
		assert.Equal(t, http.StatusNotFound, resp.status)
		assert.Equal(t, "records.not_found", resp.json("error.code").String())
	})

	t.Run("ListAndCount", func(t *testing.T) {
		send(t, srv, http.MethodPost, "/api/v1/resources/tags", `{"id":"t3","name":"ai"}`)

		resp := send(t, srv, http.MethodGet, "/api/v1/resources/tags?name=eq.ai&select=id,name", "")
		assert.Equal(t, http.StatusOK, resp.status)
		require.Len(t, resp.json("@this").Array(), 1)
		assert.Equal(t, "t3", resp.json("0.id").String())
		assert.False(t, resp.json("0.slug").Exists())

		resp = send(t, srv, http.MethodGet, "/api/v1/resources/tags/count", "")
		assert.Equal(t, int64(2), resp.json("count").Int())

		resp = send(t, srv, http.MethodGet, "/api/v1/resources/tags?limit=oops", "")
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})

	t.Run("UpdateUpsertDelete", func(t *testing.T) {
		resp := send(t, srv, http.MethodPut, "/api/v1/resources/tags/t1", `{"slug":"search"}`)
		assert.Equal(t, "search", resp.json("slug").String())

		resp = send(t, srv, http.MethodPost, "/api/v1/resources/tags/upsert", `{"id":"t3","name":"ml"}`)
		assert.Equal(t, "ml", resp.json("name").String())

		resp = send(t, srv, http.MethodDelete, "/api/v1/resources/tags/t1", "")
		assert.Equal(t, int64(1), resp.json("deleted").Int())

		resp = send(t, srv, http.MethodPost, "/api/v1/resources/tags/delete", `{"filters":[{"column":"id","op":"in","value":["t3"]}]}`)
		assert.Equal(t, int64(1), resp.json("deleted").Int())
	})

	t.Run("UnknownResource", func(t *testing.T) {
		resp := send(t, srv, http.MethodGet, "/api/v1/resources/users", "")
		assert.Equal(t, http.StatusNotFound, resp.status)
		assert.Equal(t, "catalog.unknown_resource", resp.json("error.code").String())
	})

	t.Run("InvalidBody", func(t *testing.T) {
		resp := send(t, srv, http.MethodPost, "/api/v1/resources/tags", `[1,2]`)
		assert.Equal(t, http.StatusBadRequest, resp.status)
		assert.Equal(t, "http.invalid_body", resp.json("error.code").String())
	})
}

func TestQueryRoute(t *testing.T) {
	srv := newTestServer(t)
	send(t, srv, http.MethodPost, "/api/v1/resources/tags", `{"id":"t1","name":"seo"}`)

	resp := send(t, srv, http.MethodPost, "/api/v1/query", `{"sql":"SELECT id, name FROM tags WHERE id = ?","args":["t1"]}`)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	assert.Equal(t, int64(1), resp.json("rowCount").Int())
	assert.Equal(t, "seo", resp.json("data.0.name").String())

	resp = send(t, srv, http.MethodPost, "/api/v1/query", `{"sql":"DELETE FROM tags"}`)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "records.read_only_query", resp.json("error.code").String())
}

func TestBucketRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp := send(t, srv, http.MethodPost, "/api/v1/buckets", `{"name":"assets"}`)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	assert.False(t, resp.json("public").Bool())

	put := func(path, content string, upsert bool) response {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/buckets/assets/objects/"+path, strings.NewReader(content))
		req.Header.Set("Content-Type", "image/png")
		if upsert {
			req.Header.Set(UpsertHeader, "true")
		}
		return call(t, srv, req)
	}

	resp = put("photos/a.png", "abc", false)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	assert.Equal(t, int64(3), resp.json("size").Int())

	resp = put("photos/a.png", "xyz", false)
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Equal(t, "storage.object_exists", resp.json("error.code").String())
	assert.Equal(t, http.StatusOK, put("photos/a.png", "abc", true).status)

	resp = send(t, srv, http.MethodGet, "/api/v1/buckets/assets/list?prefix=photos", "")
	require.Len(t, resp.json("@this").Array(), 1)
	assert.Equal(t, "a.png", resp.json("0.name").String())

	resp = send(t, srv, http.MethodGet, "/api/v1/buckets/assets/list", "")
	assert.Equal(t, "folder", resp.json("0.kind").String())

	resp = send(t, srv, http.MethodGet, "/api/v1/buckets/assets/objects/photos/a.png", "")
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "abc", string(resp.body))
	assert.Equal(t, "image/png", resp.header.Get("Content-Type"))

	t.Run("PublicAccessFollowsVisibility", func(t *testing.T) {
		resp := send(t, srv, http.MethodGet, "/object/public/assets/photos/a.png", "")
		assert.Equal(t, http.StatusBadRequest, resp.status)
		assert.Equal(t, "http.not_public", resp.json("error.code").String())

		resp = send(t, srv, http.MethodPatch, "/api/v1/buckets/assets", `{"public":true}`)
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))
		assert.True(t, resp.json("public").Bool())

		resp = send(t, srv, http.MethodGet, "/object/public/assets/photos/a.png", "")
		assert.Equal(t, http.StatusOK, resp.status)
		assert.Equal(t, "abc", string(resp.body))
	})

	t.Run("DeleteNonEmptyBucket", func(t *testing.T) {
		resp := send(t, srv, http.MethodDelete, "/api/v1/buckets/assets", "")
		assert.Equal(t, http.StatusConflict, resp.status)
	})

	t.Run("Remove", func(t *testing.T) {
		put("photos/b.png", "b", false)
		resp := send(t, srv, http.MethodPost, "/api/v1/buckets/assets/remove", `{"paths":["photos/b.png","photos/none.png"]}`)
		assert.Equal(t, []interface{}{"photos/b.png"}, resp.json("removed").Value())
	})

	t.Run("PurgeRequiresConfirmation", func(t *testing.T) {
		resp := send(t, srv, http.MethodDelete, "/api/v1/media/buckets/assets?confirm=asset", "")
		assert.Equal(t, http.StatusBadRequest, resp.status)
		assert.Equal(t, "medialib.confirmation_mismatch", resp.json("error.code").String())

		resp = send(t, srv, http.MethodDelete, "/api/v1/media/buckets/assets?confirm=assets", "")
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))
		assert.Equal(t, int64(1), resp.json("removed").Int())

		resp = send(t, srv, http.MethodGet, "/api/v1/buckets/assets", "")
		assert.Equal(t, http.StatusNotFound, resp.status)
	})
}

func TestTransferRoutes(t *testing.T) {
	srv := newTestServer(t)
	csv := "ID,Name,Slug\n,seo,seo\n,ai,ai\n"

	resp := upload(t, srv, "/api/v1/import/tags?validate=true", "tags.csv", csv)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	assert.Equal(t, int64(2), resp.json("rows").Int())
	assert.False(t, resp.json("result").Exists())

	resp = send(t, srv, http.MethodGet, "/api/v1/resources/tags/count", "")
	assert.Equal(t, int64(0), resp.json("count").Int())

	resp = upload(t, srv, "/api/v1/import/tags", "tags.csv", csv)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	assert.Equal(t, "success", resp.json("outcome").String())
	assert.Equal(t, int64(2), resp.json("result.success").Int())

	t.Run("ValidationWarnings", func(t *testing.T) {
		resp := upload(t, srv, "/api/v1/import/prompts?validate=true", "prompts.csv", "Title,Content,Tags\nA,Body,missing-tag\n")
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))
		assert.Equal(t, "tags", resp.json("warnings.0.field").String())
		assert.Equal(t, "missing-tag", resp.json("warnings.0.missing.0").String())
	})

	t.Run("UnsupportedFile", func(t *testing.T) {
		resp := upload(t, srv, "/api/v1/import/tags", "tags.txt", "x")
		assert.Equal(t, http.StatusBadRequest, resp.status)
		assert.Equal(t, "sheet.unsupported_format", resp.json("error.code").String())
	})

	t.Run("MissingFile", func(t *testing.T) {
		resp := send(t, srv, http.MethodPost, "/api/v1/import/tags", `{}`)
		assert.Equal(t, "http.missing_file", resp.json("error.code").String())
	})

	t.Run("Export", func(t *testing.T) {
		resp := send(t, srv, http.MethodGet, "/api/v1/export/tags?format=csv", "")
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))
		assert.Contains(t, resp.header.Get("Content-Disposition"), "tags-export-")
		assert.True(t, strings.HasPrefix(string(resp.body), "ID,Name,Slug"))
		assert.Contains(t, string(resp.body), "seo")
	})

	t.Run("Template", func(t *testing.T) {
		resp := send(t, srv, http.MethodGet, "/api/v1/templates/tags?format=csv", "")
		require.Equal(t, http.StatusOK, resp.status)
		assert.Contains(t, resp.header.Get("Content-Disposition"), "tags-template.csv")

		resp = send(t, srv, http.MethodGet, "/api/v1/templates/prompt_tags?format=csv", "")
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		"records.not_found":             http.StatusNotFound,
		"storage.bucket_exists":         http.StatusConflict,
		"records.unique_violation":      http.StatusConflict,
		"records.not_null_violation":    http.StatusUnprocessableEntity,
		"storage.invalid_path":          http.StatusBadRequest,
		"records.id_required":           http.StatusBadRequest,
		"storage.payload_too_large":     http.StatusRequestEntityTooLarge,
		"medialib.purge_failed":         http.StatusInternalServerError,
		"storage.mime_type_not_allowed": http.StatusUnsupportedMediaType,
	}
	for code, want := range cases {
		e := errors.New(errors.MustNewCode(code), "x", nil)
		assert.Equal(t, want, StatusFor(e), code)
	}
}
