package transfer

import (
	"context"
	"io"
	"sync"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/sheet"
)

// State is a stage of the import workflow
type State string

const (
	StateIdle       State = "idle"
	StateParsing    State = "parsing"
	StatePreviewing State = "previewing"
	StateValidating State = "validating"
	StateImporting  State = "importing"
	StateCompleted  State = "completed"
)

// Session walks one resource import through
// idle -> parsing -> previewing (<-> validating) -> importing -> completed.
// Reset returns to idle from anywhere except a running import.
type Session struct {
	mu       sync.RWMutex
	importer *Importer
	resource *catalog.Resource

	state    State
	fileName string
	table    *sheet.Table
	warnings []ValidationWarning
	result   *Result
	progress float64
}

// NewSession creates an idle session for res
func NewSession(importer *Importer, res *catalog.Resource) *Session {
	return &Session{importer: importer, resource: res, state: StateIdle}
}

// State returns the current stage
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// FileName returns the name of the loaded file
func (s *Session) FileName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fileName
}

// Table returns the parsed rows, nil before a successful load
func (s *Session) Table() *sheet.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Warnings returns the warnings of the last validation
func (s *Session) Warnings() []ValidationWarning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warnings
}

// Result returns the report of the finished import
func (s *Session) Result() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Progress returns the import completion percentage
func (s *Session) Progress() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// CanImport is true while previewing at least one row. Warnings never
// disable it; a running validation does.
func (s *Session) CanImport() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StatePreviewing && s.table != nil && len(s.table.Rows) > 0
}

// Load parses a file chosen by name. A parse failure leaves the session
// idle with nothing retained.
func (s *Session) Load(name string, r io.Reader) error {
	if err := s.begin(StateParsing, StateIdle, StatePreviewing, StateCompleted); err != nil {
		return err
	}

	format, err := sheet.DetectFormat(name)
	var table *sheet.Table
	if err == nil {
		table, err = sheet.Parse(r, format)
	}
	if err != nil {
		s.clear()
		return err
	}

	s.preview(name, table)
	return nil
}

// LoadTable previews rows fetched elsewhere, such as a Google spreadsheet
func (s *Session) LoadTable(name string, table *sheet.Table) error {
	if err := s.begin(StateParsing, StateIdle, StatePreviewing, StateCompleted); err != nil {
		return err
	}
	s.preview(name, table)
	return nil
}

// Validate checks every relationship and keeps the warnings. The session is
// previewing again afterwards whatever the outcome.
func (s *Session) Validate(ctx context.Context) ([]ValidationWarning, error) {
	if err := s.begin(StateValidating, StatePreviewing); err != nil {
		return nil, err
	}

	req, err := RequestFor(s.resource, s.Table().Rows)
	var warnings []ValidationWarning
	if err == nil {
		warnings, err = s.importer.Validate(ctx, req)
	}

	s.mu.Lock()
	s.state = StatePreviewing
	if err == nil {
		s.warnings = warnings
	}
	s.mu.Unlock()
	return warnings, err
}

// Import writes the previewed rows. transform may be nil.
func (s *Session) Import(ctx context.Context, transform func(records.Record) (records.Record, error)) (*Result, error) {
	if !s.CanImport() {
		return nil, errors.New(ErrInvalidState, "nothing to import", nil).AddContext("state", string(s.State()))
	}
	if err := s.begin(StateImporting, StatePreviewing); err != nil {
		return nil, err
	}

	req, err := RequestFor(s.resource, s.Table().Rows)
	if err != nil {
		s.setState(StatePreviewing)
		return nil, err
	}
	req.Transform = transform
	req.Progress = func(p float64) {
		s.mu.Lock()
		s.progress = p
		s.mu.Unlock()
	}

	result, err := s.importer.Import(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	if result == nil {
		s.state = StatePreviewing
	} else {
		s.state = StateCompleted
	}
	return result, err
}

// Reset discards everything and returns to idle
func (s *Session) Reset() error {
	if s.State() == StateImporting {
		return errors.New(ErrInvalidState, "cannot reset while importing", nil)
	}
	s.clear()
	return nil
}

func (s *Session) begin(next State, from ...State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range from {
		if s.state == st {
			s.state = next
			return nil
		}
	}
	return errors.New(ErrInvalidState, "operation not allowed now", nil).
		AddContext("state", string(s.state)).
		AddContext("next", string(next))
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) preview(name string, table *sheet.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StatePreviewing
	s.fileName = name
	s.table = table
	s.warnings = nil
	s.result = nil
	s.progress = 0
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.fileName = ""
	s.table = nil
	s.warnings = nil
	s.result = nil
	s.progress = 0
}
