package medialib

import (
	"net/url"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
)

// URLPrefix is where the file browser lives; the rest of the URL is the
// bucket followed by the folder path
const URLPrefix = "/media"

// Operation is the long-running action a session is busy with
type Operation string

const (
	OpNone         Operation = ""
	OpUploading    Operation = "uploading"
	OpDeleting     Operation = "deleting"
	OpCreateFolder Operation = "creating_folder"
)

// Session is the state of one person browsing one bucket: where they are,
// what they selected and what is running. It is not safe for concurrent use.
type Session struct {
	bucket   string
	segments []string

	selected map[string]struct{}
	drag     *dragState

	operation Operation
}

// NewSession starts at the root of bucket
func NewSession(bucket string) *Session {
	return &Session{bucket: bucket, selected: make(map[string]struct{})}
}

// SessionFromURL restores a session from /media/<bucket>/<folder>/...
func SessionFromURL(p string) (*Session, error) {
	if p != URLPrefix && !strings.HasPrefix(p, URLPrefix+"/") {
		return nil, errors.New(ErrInvalidURL, "not a media library path", nil).AddContext("path", p)
	}
	rest := strings.TrimPrefix(p, URLPrefix)

	var parts []string
	for _, raw := range strings.Split(strings.Trim(rest, "/"), "/") {
		if raw == "" {
			continue
		}
		seg, err := url.PathUnescape(raw)
		if err != nil {
			return nil, errors.New(ErrInvalidURL, "malformed path segment", err).AddContext("segment", raw)
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return nil, errors.New(ErrInvalidURL, "bucket missing from path", nil).AddContext("path", p)
	}

	s := NewSession(parts[0])
	s.segments = parts[1:]
	return s, nil
}

// URLPath renders the session location as a browser path
func (s *Session) URLPath() string {
	var b strings.Builder
	b.WriteString(URLPrefix)
	b.WriteString("/")
	b.WriteString(url.PathEscape(s.bucket))
	for _, seg := range s.segments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

// Bucket returns the bucket being browsed
func (s *Session) Bucket() string {
	return s.bucket
}

// Path returns a copy of the folder segments below the bucket root
func (s *Session) Path() []string {
	return append([]string(nil), s.segments...)
}

// Prefix returns the object key prefix of the current folder, "" at root
func (s *Session) Prefix() string {
	return strings.Join(s.segments, "/")
}

// ObjectPath returns the key of name inside the current folder
func (s *Session) ObjectPath(name string) string {
	if len(s.segments) == 0 {
		return name
	}
	return s.Prefix() + "/" + name
}

// Enter descends into a folder of the current listing
func (s *Session) Enter(folder string) {
	s.SetPath(append(s.Path(), folder))
}

// Breadcrumb is one clickable step of the current path. Depth 0 is the
// bucket root.
type Breadcrumb struct {
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// Breadcrumbs returns the bucket followed by every folder on the path
func (s *Session) Breadcrumbs() []Breadcrumb {
	crumbs := make([]Breadcrumb, 0, len(s.segments)+1)
	crumbs = append(crumbs, Breadcrumb{Name: s.bucket, Depth: 0})
	for i, seg := range s.segments {
		crumbs = append(crumbs, Breadcrumb{Name: seg, Depth: i + 1})
	}
	return crumbs
}

// NavigateTo jumps to the breadcrumb at depth
func (s *Session) NavigateTo(depth int) {
	if depth < 0 {
		depth = 0
	}
	if depth > len(s.segments) {
		depth = len(s.segments)
	}
	s.SetPath(s.segments[:depth])
}

// Home returns to the bucket root
func (s *Session) Home() {
	s.SetPath(nil)
}

// SetPath moves to segments. Any path change drops the selection.
func (s *Session) SetPath(segments []string) {
	clean := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg = strings.Trim(seg, "/"); seg != "" {
			clean = append(clean, seg)
		}
	}
	s.segments = clean
	s.Clear()
	s.drag = nil
}

// Operation returns what the session is busy with
func (s *Session) Operation() Operation {
	return s.operation
}

// Busy reports whether an operation is in flight
func (s *Session) Busy() bool {
	return s.operation != OpNone
}

func (s *Session) begin(op Operation) error {
	if s.Busy() {
		return errors.New(ErrBusy, "another operation is in progress", nil).
			AddContext("running", string(s.operation)).
			AddContext("requested", string(op))
	}
	s.operation = op
	return nil
}

func (s *Session) end() {
	s.operation = OpNone
}
