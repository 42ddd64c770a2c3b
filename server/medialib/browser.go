package medialib

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/rs/zerolog"
)

// KeepFile is the empty marker object that keeps a folder alive
const KeepFile = ".keep"

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".bmp": true, ".ico": true, ".avif": true,
}

// IsImage reports whether name has an image extension
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// Listing is the content of one folder
type Listing struct {
	Folders []string           `json:"folders"`
	Files   []storage.FileInfo `json:"files"`
}

// Names returns folder names followed by file names
func (l *Listing) Names() []string {
	names := make([]string, 0, len(l.Folders)+len(l.Files))
	names = append(names, l.Folders...)
	for _, f := range l.Files {
		names = append(names, f.Name)
	}
	return names
}

// IsFolder reports whether name is a folder of the listing
func (l *Listing) IsFolder(name string) bool {
	for _, f := range l.Folders {
		if f == name {
			return true
		}
	}
	return false
}

// NoticeLevel is how a notice is displayed
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing message about a finished action
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// ItemFailure explains why one item of a batch failed
type ItemFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Tally counts the outcome of a batch of uploads or deletes
type Tally struct {
	Action    string        `json:"action"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

func (t *Tally) ok() {
	t.Succeeded++
}

func (t *Tally) fail(name string, err error) {
	t.Failed++
	t.Failures = append(t.Failures, ItemFailure{Name: name, Error: message(err)})
}

// Notices yields at most one success and one failure notice for the batch
func (t Tally) Notices() []Notice {
	var out []Notice
	if t.Succeeded > 0 {
		out = append(out, Notice{Level: NoticeSuccess, Message: fmt.Sprintf("%s %d item(s)", pastTense(t.Action), t.Succeeded)})
	}
	if t.Failed > 0 {
		out = append(out, Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to %s %d item(s)", t.Action, t.Failed)})
	}
	return out
}

func pastTense(action string) string {
	switch action {
	case "upload":
		return "Uploaded"
	case "delete":
		return "Deleted"
	}
	return "Processed"
}

// UploadFile is one file handed to Upload
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Item names an entry of the current folder
type Item struct {
	Name   string `json:"name"`
	Folder bool   `json:"folder"`
}

// PreviewKind says how an item can be shown
type PreviewKind string

const (
	PreviewImage    PreviewKind = "image"
	PreviewDownload PreviewKind = "download"
)

// Preview describes how to show or fetch a file
type Preview struct {
	Kind PreviewKind `json:"kind"`
	Name string      `json:"name"`
	Path string      `json:"path"`
	URL  string      `json:"url"`
}

// CopyKind picks what a copy action puts on the clipboard
type CopyKind string

const (
	CopyURL  CopyKind = "url"
	CopyPath CopyKind = "path"
)

// Browser performs file actions for a Session
type Browser struct {
	gateway   storage.Gateway
	listLimit int
	logger    zerolog.Logger
}

// NewBrowser creates a browser listing at most listLimit entries per folder
func NewBrowser(gateway storage.Gateway, listLimit int, logger zerolog.Logger) *Browser {
	if listLimit <= 0 {
		listLimit = config.DEFAULT_LIST_LIMIT
	}
	return &Browser{
		gateway:   gateway,
		listLimit: listLimit,
		logger:    logger.With().Str("component", "browser").Logger(),
	}
}

// Listing lists the session's current folder: folders sorted and unique,
// files in listing order with .keep markers hidden
func (b *Browser) Listing(ctx context.Context, s *Session) (*Listing, error) {
	entries, err := b.gateway.List(ctx, s.Bucket(), s.Prefix(), storage.ListOptions{
		Limit:  b.listLimit,
		SortBy: storage.SortBy{Column: "name", Order: "asc"},
	})
	if err != nil {
		return nil, err
	}

	listing := &Listing{Folders: []string{}, Files: []storage.FileInfo{}}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsFolder() {
			if _, dup := seen[e.Name]; !dup {
				seen[e.Name] = struct{}{}
				listing.Folders = append(listing.Folders, e.Name)
			}
			continue
		}
		if e.Name == KeepFile {
			continue
		}
		listing.Files = append(listing.Files, *e.File)
	}
	sort.Strings(listing.Folders)
	return listing, nil
}

// Upload stores each file in the current folder, overwriting existing ones
func (b *Browser) Upload(ctx context.Context, s *Session, files []UploadFile) (Tally, error) {
	tally := Tally{Action: "upload"}
	if err := s.begin(OpUploading); err != nil {
		return tally, err
	}
	defer s.end()

	for _, f := range files {
		_, err := b.gateway.Upload(ctx, s.Bucket(), s.ObjectPath(f.Name), f.Body, f.Size, storage.UploadOptions{
			Upsert:      true,
			ContentType: f.ContentType,
		})
		if err != nil {
			b.logger.Warn().Err(err).Str("bucket", s.Bucket()).Str("file", f.Name).Msg("Upload failed")
			tally.fail(f.Name, err)
			continue
		}
		tally.ok()
	}
	return tally, nil
}

// CreateFolder creates name in the current folder by writing its marker
func (b *Browser) CreateFolder(ctx context.Context, s *Session, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return errors.New(ErrInvalidFolderName, "folder names must be non-empty and contain no slashes", nil).
			AddContext("name", name)
	}
	if err := s.begin(OpCreateFolder); err != nil {
		return err
	}
	defer s.end()

	_, err := b.gateway.Upload(ctx, s.Bucket(), s.ObjectPath(name)+"/"+KeepFile, bytes.NewReader(nil), 0, storage.UploadOptions{
		Upsert:      true,
		ContentType: "text/plain",
	})
	return err
}

// Delete removes one item. A folder loses its immediate files only.
func (b *Browser) Delete(ctx context.Context, s *Session, item Item) (Notice, error) {
	if err := s.begin(OpDeleting); err != nil {
		return Notice{}, err
	}
	defer s.end()

	if err := b.deleteItem(ctx, s, item); err != nil {
		return Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to delete %s: %s", item.Name, message(err))}, err
	}
	return Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Deleted %s", item.Name)}, nil
}

// DeleteSelected deletes every selected item of the current folder, then
// clears the selection. Items fail independently.
func (b *Browser) DeleteSelected(ctx context.Context, s *Session) (Tally, error) {
	tally := Tally{Action: "delete"}
	selected := s.Selected()
	if len(selected) == 0 {
		return tally, nil
	}

	listing, err := b.Listing(ctx, s)
	if err != nil {
		return tally, err
	}

	if err := s.begin(OpDeleting); err != nil {
		return tally, err
	}
	defer s.end()

	for _, name := range selected {
		if err := b.deleteItem(ctx, s, Item{Name: name, Folder: listing.IsFolder(name)}); err != nil {
			b.logger.Warn().Err(err).Str("bucket", s.Bucket()).Str("item", name).Msg("Delete failed")
			tally.fail(name, err)
			continue
		}
		tally.ok()
	}

	s.Clear()
	return tally, nil
}

func (b *Browser) deleteItem(ctx context.Context, s *Session, item Item) error {
	target := s.ObjectPath(item.Name)
	if !item.Folder {
		_, err := b.gateway.Remove(ctx, s.Bucket(), []string{target})
		return err
	}

	entries, err := listAll(ctx, b.gateway, s.Bucket(), target, b.listLimit)
	if err != nil {
		return err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsFolder() {
			paths = append(paths, e.File.Path)
		}
	}
	if len(paths) == 0 {
		return nil
	}
	_, err = b.gateway.Remove(ctx, s.Bucket(), paths)
	return err
}

// Preview returns an inline image URL for images and a download action for
// everything else
func (b *Browser) Preview(s *Session, name string) Preview {
	p := Preview{
		Kind: PreviewDownload,
		Name: name,
		Path: s.ObjectPath(name),
		URL:  b.gateway.PublicURL(s.Bucket(), s.ObjectPath(name)),
	}
	if IsImage(name) {
		p.Kind = PreviewImage
	}
	return p
}

// Copy returns the text to put on the clipboard and a confirmation notice
func (b *Browser) Copy(s *Session, name string, kind CopyKind) (string, Notice) {
	if kind == CopyPath {
		return s.ObjectPath(name), Notice{Level: NoticeSuccess, Message: "Path copied to clipboard"}
	}
	return b.gateway.PublicURL(s.Bucket(), s.ObjectPath(name)), Notice{Level: NoticeSuccess, Message: "URL copied to clipboard"}
}

func message(err error) string {
	if e := errors.AsError(err); e != nil {
		return e.Message
	}
	return err.Error()
}
