package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newBucketCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bucket",
		Aliases: []string{"buckets"},
		Short:   "Manage media buckets",
	}

	cmd.AddCommand(
		newBucketListCmd(opts),
		newBucketCreateCmd(opts),
		newBucketVisibilityCmd(opts, "public", true),
		newBucketVisibilityCmd(opts, "private", false),
		newBucketRemoveCmd(opts),
	)
	return cmd
}

func newBucketListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List buckets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			buckets, err := rt.library().ListBuckets(commandContext(cmd))
			if err != nil {
				return err
			}
			if len(buckets) == 0 {
				rt.display.Info("No buckets")
				return nil
			}

			rows := make([][]string, len(buckets))
			for i, b := range buckets {
				rows[i] = []string{b.Name, visibility(b), sizeLimit(b), humanize.Time(b.CreatedAt)}
			}
			return rt.display.Table([]string{"Name", "Visibility", "Size limit", "Created"}, rows)
		},
	}
}

func newBucketCreateCmd(opts *globalOptions) *cobra.Command {
	var public bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			b, err := rt.library().CreateBucket(commandContext(cmd), args[0], public)
			if err != nil {
				return err
			}
			rt.display.Success("Created %s bucket %s", visibility(b), b.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "serve objects without authentication")
	return cmd
}

func newBucketVisibilityCmd(opts *globalOptions, use string, public bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: "Make a bucket " + use,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			b, err := rt.library().SetVisibility(commandContext(cmd), args[0], public)
			if err != nil {
				return err
			}
			rt.display.Success("Bucket %s is now %s", b.Name, visibility(b))
			return nil
		},
	}
}

func newBucketRemoveCmd(opts *globalOptions) *cobra.Command {
	var confirm string

	cmd := &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Delete a bucket and everything in it",
		Long: `Delete a bucket and every object in it. The bucket name must be typed
to confirm, either with --confirm or at the prompt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if confirm == "" {
				typed, err := promptConfirmation(cmd, name)
				if err != nil {
					return err
				}
				confirm = typed
			}

			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.library().DeleteBucket(commandContext(cmd), name, confirm)
			if report != nil && report.Removed > 0 {
				rt.display.Info("Removed %s object(s) across %d level(s)", humanize.Comma(int64(report.Removed)), report.Levels)
			}
			if err != nil {
				return err
			}
			rt.display.Success("Deleted bucket %s", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&confirm, "confirm", "", "bucket name, typed again to confirm")
	return cmd
}

// promptConfirmation asks for the bucket name on an interactive terminal
func promptConfirmation(cmd *cobra.Command, name string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New(ErrConfirmationRequired, "pass --confirm with the bucket name", nil).
			AddContext("bucket", name)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Type %q to delete the bucket and all its files: ", name)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return "", errors.New(ErrConfirmationRequired, "no confirmation entered", err)
	}
	return strings.TrimSpace(line), nil
}

func visibility(b storage.Bucket) string {
	if b.Public {
		return "public"
	}
	return "private"
}

func sizeLimit(b storage.Bucket) string {
	if b.FileSizeLimit == nil {
		return "-"
	}
	return humanize.Bytes(uint64(*b.FileSizeLimit))
}
