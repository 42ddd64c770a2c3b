package cli

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/gear6io/promptvalley/server/transfer"
	"github.com/spf13/cobra"
)

const progressInterval = 100 * time.Millisecond

type importOptions struct {
	resource     string
	sheetURL     string
	sheetRange   string
	validateOnly bool
	failedOut    string
}

func newImportCmd(opts *globalOptions) *cobra.Command {
	iopts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a CSV, Excel or Google Sheets file into a resource",
		Long: `Import rows into a catalog resource.

Rows are read from a .csv/.xlsx file or, with --sheet, from a Google
spreadsheet. Every relationship column is checked first and missing
references are reported as warnings. Each row is then written on its own:
rows with an id are upserted, rows without one are created. Failed rows can
be written back out with their error for correction.

Examples:
  promptvalley import prompts.xlsx --resource prompts
  promptvalley import --sheet https://docs.google.com/spreadsheets/d/abc --resource tags
  promptvalley import tags.csv --resource tags --validate-only
  promptvalley import prompts.csv --resource prompts --failed-out failed.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && iopts.sheetURL == "" {
				return errors.New(ErrSourceRequired, "a file or --sheet is required", nil)
			}
			return runImport(cmd, opts, iopts, args)
		},
	}

	cmd.Flags().StringVarP(&iopts.resource, "resource", "r", "", "target resource")
	cmd.Flags().StringVar(&iopts.sheetURL, "sheet", "", "Google Sheets URL or spreadsheet id")
	cmd.Flags().StringVar(&iopts.sheetRange, "range", "", "sheet range (default from config)")
	cmd.Flags().BoolVar(&iopts.validateOnly, "validate-only", false, "check references without writing")
	cmd.Flags().StringVar(&iopts.failedOut, "failed-out", "", "write failed rows with their error to this file")
	_ = cmd.MarkFlagRequired("resource")
	return cmd
}

func runImport(cmd *cobra.Command, opts *globalOptions, iopts *importOptions, args []string) error {
	rt, err := newRuntime(cmd, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := catalog.Lookup(iopts.resource)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	session := transfer.NewSession(rt.importer(), res)
	if err := loadSource(ctx, rt, session, iopts, args); err != nil {
		return err
	}

	d := rt.display
	table := session.Table()
	d.Info("Loaded %s rows from %s", humanize.Comma(int64(len(table.Rows))), session.FileName())

	warnings, err := session.Validate(ctx)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		d.Warning("%s", w.Message())
	}
	if iopts.validateOnly {
		if len(warnings) == 0 {
			d.Success("All references resolve")
		}
		return nil
	}

	result, err := importWithProgress(ctx, rt, session)
	if err != nil {
		return err
	}

	switch result.Outcome() {
	case transfer.OutcomeSuccess:
		d.Success("Imported %s row(s) into %s", humanize.Comma(int64(result.Success)), res.Name)
	case transfer.OutcomePartial:
		d.Warning("Imported %s of %s row(s) into %s", humanize.Comma(int64(result.Success)), humanize.Comma(int64(result.Total())), res.Name)
	case transfer.OutcomeFailed:
		d.Error("No rows imported into %s", res.Name)
	}

	failed := result.FailedRows()
	if len(failed) > 0 {
		rows := make([][]string, len(failed))
		for i, r := range failed {
			rows[i] = []string{strconv.Itoa(r.Index + 1), r.ID, r.Error}
		}
		if err := d.Table([]string{"Row", "ID", "Error"}, rows); err != nil {
			return err
		}
		if iopts.failedOut != "" {
			if err := writeFailedRows(rt, result, table.Headers, iopts.failedOut); err != nil {
				return err
			}
			d.Info("Wrote %d failed row(s) to %s", len(failed), iopts.failedOut)
		}
	}

	if result.Outcome() == transfer.OutcomeFailed {
		return errors.Newf(ErrImportFailed, "all %d row(s) failed", result.Failed).
			AddContext("resource", res.Name).
			AddContext("run_id", result.RunID)
	}
	return nil
}

func loadSource(ctx context.Context, rt *runtime, session *transfer.Session, iopts *importOptions, args []string) error {
	if iopts.sheetURL != "" {
		id, err := sheet.SpreadsheetID(iopts.sheetURL)
		if err != nil {
			return err
		}
		source, err := sheet.NewGoogleSource(ctx, &rt.cfg.Sheets)
		if err != nil {
			return err
		}
		table, err := source.Fetch(ctx, id, iopts.sheetRange)
		if err != nil {
			return err
		}
		return session.LoadTable(id, table)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return session.Load(filepath.Base(args[0]), f)
}

// importWithProgress runs the import while a bar follows the session's
// completed percentage
func importWithProgress(ctx context.Context, rt *runtime, session *transfer.Session) (*transfer.Result, error) {
	bar := rt.display.Progress(100, "Importing")
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Set(int(session.Progress()))
			}
		}
	}()

	result, err := session.Import(ctx, nil)
	close(done)
	wg.Wait()
	if err == nil {
		_ = bar.Finish()
	}
	return result, err
}

func writeFailedRows(rt *runtime, result *transfer.Result, headers []string, out string) error {
	format, err := sheet.DetectFormat(out)
	if err != nil {
		return err
	}
	file, err := rt.exporter().ExportFailedRows(result, headers, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, file.Data, 0644); err != nil {
		return errors.New(ErrFileWriteFailed, "failed to write file", err).AddContext("path", out)
	}
	return nil
}
