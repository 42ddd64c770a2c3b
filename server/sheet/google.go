package sheet

import (
	"context"
	"fmt"
	"regexp"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/config"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var (
	spreadsheetIDRegex = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	bareIDRegex        = regexp.MustCompile(`^[a-zA-Z0-9-_]{20,}$`)
)

// SpreadsheetID extracts the id from a Google Sheets URL. A bare id is
// returned unchanged.
func SpreadsheetID(url string) (string, error) {
	if matches := spreadsheetIDRegex.FindStringSubmatch(url); len(matches) == 2 {
		return matches[1], nil
	}
	if bareIDRegex.MatchString(url) {
		return url, nil
	}
	return "", errors.New(ErrInvalidSheetURL, "could not extract spreadsheet ID from URL", nil).AddContext("url", url)
}

// GoogleSource reads import rows straight from a Google spreadsheet
type GoogleSource struct {
	srv          *sheets.Service
	defaultRange string
}

// NewGoogleSource authenticates with, in order of preference, a service
// account credentials file, a static OAuth access token or an API key
func NewGoogleSource(ctx context.Context, cfg *config.SheetsConfig) (*GoogleSource, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.AccessToken != "":
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, errors.New(ErrCredentialsRequired, "google sheets credentials are not configured", nil)
	}
	return NewGoogleSourceWithOptions(ctx, cfg.Range, opts...)
}

// NewGoogleSourceWithOptions builds a source from raw client options
func NewGoogleSourceWithOptions(ctx context.Context, defaultRange string, opts ...option.ClientOption) (*GoogleSource, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.New(ErrFetchFailed, "unable to retrieve Sheets client", err)
	}
	if defaultRange == "" {
		defaultRange = config.DEFAULT_SHEET_RANGE
	}
	return &GoogleSource{srv: srv, defaultRange: defaultRange}, nil
}

// Fetch reads rng (the configured range when empty) and parses it like a
// file: first row headers, blank rows dropped
func (g *GoogleSource) Fetch(ctx context.Context, spreadsheetID, rng string) (*Table, error) {
	if rng == "" {
		rng = g.defaultRange
	}

	resp, err := g.srv.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, errors.New(ErrFetchFailed, "unable to retrieve data from sheet", err).
			AddContext("spreadsheet_id", spreadsheetID).
			AddContext("range", rng)
	}
	if len(resp.Values) == 0 {
		return nil, errors.New(ErrMissingHeader, "no data found in sheet", nil).AddContext("spreadsheet_id", spreadsheetID)
	}

	records := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				cells[j] = fmt.Sprintf("%v", cell)
			}
		}
		records[i] = cells
	}
	return fromRecords(records)
}
