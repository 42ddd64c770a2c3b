package cli

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/medialib"
	api "github.com/gear6io/promptvalley/server/protocols/http"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/gear6io/promptvalley/server/storage/memory"
	"github.com/gear6io/promptvalley/server/transfer"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

// testEnv is a config file plus a scratch directory for input and output files
type testEnv struct {
	t      *testing.T
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "promptvalley.yml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
log:
  console: false
  file_path: ""
database:
  path: `+filepath.Join(dir, "data", "catalog.db")+`
storage:
  backend: filesystem
  data_path: `+filepath.Join(dir, "data", "objects")+`
  public_url: http://cdn.test
`), 0644))
	return &testEnv{t: t, dir: dir, config: cfg}
}

func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, out)
	return out
}

func (e *testEnv) file(name, content string) string {
	e.t.Helper()
	p := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()
	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "import", "export", "template", "bucket", "browse", "query"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("server"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestBucketCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("bucket", "ls")
	assert.Contains(t, out, "No buckets")

	out = env.mustRun("bucket", "create", "assets", "--public")
	assert.Contains(t, out, "Created public bucket assets")

	out = env.mustRun("bucket", "ls")
	assert.Contains(t, out, "assets")
	assert.Contains(t, out, "public")

	out = env.mustRun("bucket", "private", "assets")
	assert.Contains(t, out, "Bucket assets is now private")

	_, err := env.run("bucket", "create", "Bad Name")
	assert.True(t, errors.HasCode(err, storage.ErrInvalidBucketName))

	t.Run("ConfirmationRequired", func(t *testing.T) {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			t.Skip("stdin is a terminal")
		}
		_, err := env.run("bucket", "rm", "assets")
		assert.True(t, errors.HasCode(err, ErrConfirmationRequired))
	})

	_, err = env.run("bucket", "rm", "assets", "--confirm", "asset")
	assert.True(t, errors.HasCode(err, medialib.ErrConfirmationMismatch))

	env.file("a.txt", "a")
	env.mustRun("browse", "assets/deep/er", "upload", filepath.Join(env.dir, "a.txt"))

	out = env.mustRun("bucket", "rm", "assets", "--confirm", "assets")
	assert.Contains(t, out, "Removed 1 object(s)")
	assert.Contains(t, out, "Deleted bucket assets")

	out = env.mustRun("bucket", "ls")
	assert.Contains(t, out, "No buckets")
}

func TestBrowseCommands(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("bucket", "create", "assets", "--public")

	cat := env.file("cat.png", "png-bytes")
	notes := env.file("notes.txt", "hello")

	out := env.mustRun("browse", "assets", "upload", cat, notes)
	assert.Contains(t, out, "Uploaded 2 item(s)")

	out = env.mustRun("browse", "assets", "mkdir", "photos")
	assert.Contains(t, out, "Created folder photos")
	env.mustRun("browse", "assets/photos", "upload", cat)

	out = env.mustRun("browse", "assets")
	assert.Contains(t, out, "/media/assets")
	assert.Contains(t, out, "photos/")
	assert.Contains(t, out, "cat.png")
	assert.Contains(t, out, "image")
	assert.Contains(t, out, "notes.txt")

	out = env.mustRun("browse", "assets/photos", "ls")
	assert.Contains(t, out, "cat.png")
	assert.NotContains(t, out, ".keep")

	out = env.mustRun("browse", "assets/photos", "url", "cat.png")
	assert.Contains(t, out, "http://cdn.test/object/public/assets/photos/cat.png")

	out = env.mustRun("browse", "assets/photos", "path", "cat.png")
	assert.Contains(t, out, "photos/cat.png")

	out = env.mustRun("browse", "assets", "preview", "notes.txt")
	assert.Contains(t, out, "download")

	out = env.mustRun("browse", "assets", "rm", "notes.txt")
	assert.Contains(t, out, "Deleted notes.txt")

	out = env.mustRun("browse", "assets", "rm", "cat.png", "photos")
	assert.Contains(t, out, "Deleted 2 item(s)")

	out = env.mustRun("browse", "assets")
	assert.Contains(t, out, "This folder is empty")

	_, err := env.run("browse", "assets", "rename", "x")
	assert.True(t, errors.HasCode(err, ErrUnknownAction))

	_, err = env.run("browse", "assets", "url")
	assert.True(t, errors.HasCode(err, ErrInvalidArguments))

	_, err = env.run("browse", "assets", "mkdir", "a/b")
	assert.True(t, errors.HasCode(err, medialib.ErrInvalidFolderName))

	_, err = env.run("browse", "missing")
	assert.True(t, errors.HasCode(err, storage.ErrBucketNotFound))
}

func TestTransferCommands(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Template", func(t *testing.T) {
		out := env.mustRun("template", "tags", "-o", filepath.Join(env.dir, "tags-template.csv"))
		assert.Contains(t, out, "Wrote tags template")
		data, err := os.ReadFile(filepath.Join(env.dir, "tags-template.csv"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "ID,Name,Slug")
	})

	tags := env.file("tags.csv", "ID,Name,Slug\n,seo,seo\n,ads,ads\n")

	t.Run("Import", func(t *testing.T) {
		out := env.mustRun("import", tags, "--resource", "tags")
		assert.Contains(t, out, "Loaded 2 rows from tags.csv")
		assert.Contains(t, out, "Imported 2 row(s) into tags")
	})

	t.Run("ImportAllFailed", func(t *testing.T) {
		failed := filepath.Join(env.dir, "failed.csv")
		out, err := env.run("import", tags, "--resource", "tags", "--failed-out", failed)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, ErrImportFailed))
		assert.Contains(t, out, "No rows imported into tags")
		assert.Contains(t, out, "Wrote 2 failed row(s)")

		data, err := os.ReadFile(failed)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Error")
	})

	t.Run("ValidateOnly", func(t *testing.T) {
		prompts := env.file("prompts.csv", "Title,Content,Tags\nHello,Body,t-404\n")
		out := env.mustRun("import", prompts, "--resource", "prompts", "--validate-only")
		assert.Contains(t, out, "missing tag reference")

		out, err := env.run("query", "SELECT count(*) AS n FROM prompts")
		require.NoError(t, err)
		assert.Contains(t, out, "0")
	})

	t.Run("Export", func(t *testing.T) {
		target := filepath.Join(env.dir, "tags-out.csv")
		out := env.mustRun("export", "tags", "-o", target)
		assert.Contains(t, out, "Exported tags to "+target)

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(data), "seo")
		assert.Contains(t, string(data), "ads")
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := env.run("import", "--resource", "tags")
		assert.True(t, errors.HasCode(err, ErrSourceRequired))

		_, err = env.run("export", "nope")
		assert.True(t, errors.HasCode(err, catalog.ErrUnknownResource))

		_, err = env.run("template", "prompt_tags")
		assert.True(t, errors.HasCode(err, transfer.ErrNotTransferable))
	})
}

func TestQueryCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("import", env.file("tags.csv", "Name,Slug\nseo,seo\nads,ads\n"), "--resource", "tags")

	out := env.mustRun("query", "SELECT name, slug FROM tags WHERE name = ?", "ads")
	assert.Contains(t, out, "ads")
	assert.NotContains(t, out, "seo")
	assert.Contains(t, out, "1 row(s)")

	out = env.mustRun("query", "SELECT name FROM tags WHERE name = ?", "none")
	assert.Contains(t, out, "No rows")

	_, err := env.run("query", "DELETE FROM tags")
	assert.True(t, errors.HasCode(err, records.ErrReadOnlyQuery))
}

func TestResultColumns(t *testing.T) {
	cols := resultColumns([]records.Record{
		{"title": "a", "id": "1"},
		{"body": "b"},
	})
	assert.Equal(t, []string{"id", "body", "title"}, cols)
}

func TestRemoteServer(t *testing.T) {
	store, err := records.Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := "http://" + ln.Addr().String()

	svc := storage.NewService(memory.NewMemoryStorage(), storage.NewBucketStore(store.DB()), addr, zerolog.Nop())
	srv, err := api.NewServer(config.HTTPConfig{}, api.Services{
		Records:  store,
		Storage:  svc,
		Importer: transfer.NewImporter(store, 0, zerolog.Nop()),
		Exporter: transfer.NewExporter(store, 0, zerolog.Nop()),
		Library:  medialib.NewLibrary(svc, nil, zerolog.Nop()),
	}, zerolog.Nop())
	require.NoError(t, err)

	go srv.App().Listener(ln)
	t.Cleanup(func() {
		srv.App().ShutdownWithTimeout(5 * time.Second)
		store.Close()
	})

	env := newTestEnv(t)
	env.mustRun("--server", addr, "bucket", "create", "remote")
	env.mustRun("--server", addr, "import", env.file("tags.csv", "Name,Slug\nseo,seo\n"), "--resource", "tags")

	buckets, err := svc.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "remote", buckets[0].Name)

	n, err := store.Count(context.Background(), "tags")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out := env.mustRun("--server", addr, "browse", "remote", "upload", env.file("a.txt", "a"))
	assert.Contains(t, out, "Uploaded 1 item(s)")

	out = env.mustRun("--server", addr, "browse", "remote", "url", "a.txt")
	assert.Contains(t, out, addr+"/object/public/remote/a.txt")

	out = env.mustRun("bucket", "ls")
	assert.Contains(t, out, "No buckets")
}
