package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/medialib"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/spf13/cobra"
)

func newBrowseCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <bucket>[/path] [action] [args...]",
		Short: "Browse and manage files in a bucket",
		Long: `Browse the folder at <bucket>[/path] and act on it.

Actions:
  ls                  list folders and files (default)
  upload <file>...    upload local files, replacing existing ones
  mkdir <name>        create a folder
  rm <name>...        delete files, or the direct files of a folder
  url <name>          print the public URL of a file
  path <name>         print the object path of a file
  preview <name>      show how a file is previewed

Examples:
  promptvalley browse assets
  promptvalley browse assets/photos upload cat.png dog.png
  promptvalley browse assets rm photos old.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := medialib.SessionFromURL(medialib.URLPrefix + "/" + strings.Trim(args[0], "/"))
			if err != nil {
				return errors.New(ErrInvalidLocation, "location must be <bucket>[/path]", err).AddContext("location", args[0])
			}
			action, rest := "ls", args[1:]
			if len(rest) > 0 {
				action, rest = rest[0], rest[1:]
			}

			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			b := &browseAction{rt: rt, browser: rt.browser(), session: session, cmd: cmd}
			return b.run(action, rest)
		},
	}
}

type browseAction struct {
	rt      *runtime
	browser *medialib.Browser
	session *medialib.Session
	cmd     *cobra.Command
}

func (b *browseAction) run(action string, args []string) error {
	switch action {
	case "ls", "list":
		return b.list()
	case "upload":
		return b.upload(args)
	case "mkdir":
		if err := exactArgs(action, args, 1); err != nil {
			return err
		}
		return b.mkdir(args[0])
	case "rm", "delete":
		return b.remove(args)
	case "url", "path":
		if err := exactArgs(action, args, 1); err != nil {
			return err
		}
		text, _ := b.browser.Copy(b.session, args[0], medialib.CopyKind(action))
		b.rt.display.Println(text)
		return nil
	case "preview":
		if err := exactArgs(action, args, 1); err != nil {
			return err
		}
		p := b.browser.Preview(b.session, args[0])
		return b.rt.display.Table([]string{"Kind", "Path", "URL"}, [][]string{{string(p.Kind), p.Path, p.URL}})
	}
	return errors.New(ErrUnknownAction, "unknown browse action", nil).AddContext("action", action)
}

func (b *browseAction) list() error {
	listing, err := b.browser.Listing(commandContext(b.cmd), b.session)
	if err != nil {
		return err
	}
	d := b.rt.display
	d.Info("%s", b.session.URLPath())
	if len(listing.Folders) == 0 && len(listing.Files) == 0 {
		d.Info("This folder is empty")
		return nil
	}

	rows := make([][]string, 0, len(listing.Folders)+len(listing.Files))
	for _, f := range listing.Folders {
		rows = append(rows, []string{f + "/", "folder", "", ""})
	}
	for _, f := range listing.Files {
		kind := "file"
		if medialib.IsImage(f.Name) {
			kind = "image"
		}
		rows = append(rows, []string{f.Name, kind, humanize.Bytes(uint64(f.Size)), humanize.Time(f.UpdatedAt)})
	}
	return d.Table([]string{"Name", "Type", "Size", "Modified"}, rows)
}

func (b *browseAction) upload(paths []string) error {
	if len(paths) == 0 {
		return errors.New(ErrSourceRequired, "upload needs at least one file", nil)
	}

	files := make([]medialib.UploadFile, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		name := filepath.Base(p)
		files = append(files, medialib.UploadFile{
			Name:        name,
			Size:        info.Size(),
			ContentType: storage.DetectContentType(name),
			Body:        f,
		})
	}

	tally, err := b.browser.Upload(commandContext(b.cmd), b.session, files)
	if err != nil {
		return err
	}
	b.report(tally)
	return nil
}

func (b *browseAction) mkdir(name string) error {
	if err := b.browser.CreateFolder(commandContext(b.cmd), b.session, name); err != nil {
		return err
	}
	b.rt.display.Success("Created folder %s", strings.TrimSpace(name))
	return nil
}

func (b *browseAction) remove(names []string) error {
	if len(names) == 0 {
		return errors.New(ErrSourceRequired, "rm needs at least one name", nil)
	}
	ctx := commandContext(b.cmd)

	if len(names) == 1 {
		listing, err := b.browser.Listing(ctx, b.session)
		if err != nil {
			return err
		}
		notice, err := b.browser.Delete(ctx, b.session, medialib.Item{Name: names[0], Folder: listing.IsFolder(names[0])})
		b.rt.display.Notices(notice)
		return err
	}

	for _, name := range names {
		b.session.Toggle(name)
	}
	tally, err := b.browser.DeleteSelected(ctx, b.session)
	if err != nil {
		return err
	}
	b.report(tally)
	return nil
}

func (b *browseAction) report(tally medialib.Tally) {
	b.rt.display.Notices(tally.Notices()...)
	for _, f := range tally.Failures {
		b.rt.display.Warning("%s: %s", f.Name, f.Error)
	}
}

func exactArgs(action string, args []string, n int) error {
	if len(args) != n {
		return errors.Newf(ErrInvalidArguments, "%s takes %d argument(s)", action, n).AddContext("action", action)
	}
	return nil
}
