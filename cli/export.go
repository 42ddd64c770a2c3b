package cli

import (
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/gear6io/promptvalley/server/transfer"
	"github.com/spf13/cobra"
)

type fileOptions struct {
	output string
	format string
}

func (o *fileOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default: generated name in the current directory)")
	cmd.Flags().StringVarP(&o.format, "format", "f", string(sheet.FormatXLSX), "file format: xlsx or csv")
}

// resolve picks the format from the output extension when there is one
func (o *fileOptions) resolve() (sheet.Format, error) {
	if o.output != "" && filepath.Ext(o.output) != "" {
		return sheet.DetectFormat(o.output)
	}
	return sheet.ParseFormat(o.format)
}

func (o *fileOptions) write(file *transfer.File) (string, error) {
	out := o.output
	if out == "" {
		out = file.Name
	}
	if err := os.WriteFile(out, file.Data, 0644); err != nil {
		return "", errors.New(ErrFileWriteFailed, "failed to write file", err).AddContext("path", out)
	}
	return out, nil
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	fo := &fileOptions{}

	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Export a resource to a CSV or Excel file",
		Long: `Export every row of a resource, newest first, using its column headers.
Many-to-many columns are written as comma separated ids so the file can be
imported back unchanged.

Examples:
  promptvalley export prompts -o prompts.xlsx
  promptvalley export tags --format csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := catalog.Lookup(args[0])
			if err != nil {
				return err
			}
			format, err := fo.resolve()
			if err != nil {
				return err
			}
			req, err := transfer.ExportRequestFor(res, format)
			if err != nil {
				return err
			}

			bar := rt.display.Progress(1, "Exporting")
			req.Progress = func(fetched, total int) {
				if total > 0 {
					bar.ChangeMax(total)
				}
				_ = bar.Set(fetched)
			}

			file, err := rt.exporter().ExportResource(commandContext(cmd), req)
			if err != nil {
				return err
			}
			_ = bar.Finish()

			out, err := fo.write(file)
			if err != nil {
				return err
			}
			rt.display.Success("Exported %s to %s (%s)", res.Name, out, humanize.Bytes(uint64(len(file.Data))))
			return nil
		},
	}

	fo.register(cmd)
	return cmd
}

func newTemplateCmd(opts *globalOptions) *cobra.Command {
	fo := &fileOptions{}

	cmd := &cobra.Command{
		Use:   "template <resource>",
		Short: "Write an import template with headers and an example row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := catalog.Lookup(args[0])
			if err != nil {
				return err
			}
			format, err := fo.resolve()
			if err != nil {
				return err
			}
			file, err := rt.exporter().Template(res, format)
			if err != nil {
				return err
			}
			out, err := fo.write(file)
			if err != nil {
				return err
			}
			rt.display.Success("Wrote %s template to %s", res.Name, out)
			return nil
		},
	}

	fo.register(cmd)
	return cmd
}
