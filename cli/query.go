package cli

import (
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/transfer"
	"github.com/spf13/cobra"
)

func newQueryCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql> [args...]",
		Short: "Run a read-only SELECT against the catalog",
		Long: `Run a read-only SELECT (or WITH) statement and print the rows.
Extra arguments bind to ? placeholders in order.

Examples:
  promptvalley query "SELECT id, title FROM prompts WHERE is_featured = ?" true
  promptvalley query "SELECT c.name, count(*) AS prompts FROM prompts p JOIN categories c ON c.id = p.category_id GROUP BY c.name"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			params := make([]interface{}, len(args)-1)
			for i, a := range args[1:] {
				params[i] = a
			}

			rows, err := rt.records.Raw(commandContext(cmd), args[0], params...)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				rt.display.Info("No rows")
				return nil
			}

			headers := resultColumns(rows)
			data := make([][]string, len(rows))
			for i, row := range rows {
				cells := make([]string, len(headers))
				for j, h := range headers {
					cells[j] = transfer.Cell(row[h])
				}
				data[i] = cells
			}
			if err := rt.display.Table(headers, data); err != nil {
				return err
			}
			rt.display.Info("%s row(s)", humanize.Comma(int64(len(rows))))
			return nil
		},
	}
}

// resultColumns returns every key seen in rows, id first and the rest sorted
func resultColumns(rows []records.Record) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	sort.Slice(columns, func(i, j int) bool {
		if columns[i] == "id" || columns[j] == "id" {
			return columns[i] == "id"
		}
		return columns[i] < columns[j]
	})
	return columns
}
