package cli

import (
	"fmt"
	"io"

	"github.com/gear6io/promptvalley/server/medialib"
	"github.com/pterm/pterm"
	"github.com/schollz/progressbar/v3"
)

// display renders command output through pterm onto one writer
type display struct {
	out io.Writer
}

func newDisplay(out io.Writer) *display {
	return &display{out: out}
}

func (d *display) Info(format string, args ...interface{}) {
	fmt.Fprintln(d.out, pterm.Info.Sprintf(format, args...))
}

func (d *display) Success(format string, args ...interface{}) {
	fmt.Fprintln(d.out, pterm.Success.Sprintf(format, args...))
}

func (d *display) Warning(format string, args ...interface{}) {
	fmt.Fprintln(d.out, pterm.Warning.Sprintf(format, args...))
}

func (d *display) Error(format string, args ...interface{}) {
	fmt.Fprintln(d.out, pterm.Error.Sprintf(format, args...))
}

func (d *display) Println(s string) {
	fmt.Fprintln(d.out, s)
}

// Table renders rows under headers
func (d *display) Table(headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(d.out, s)
	return nil
}

// Notices prints browser notices at their level
func (d *display) Notices(notices ...medialib.Notice) {
	for _, n := range notices {
		if n.Level == medialib.NoticeError {
			d.Error("%s", n.Message)
		} else {
			d.Success("%s", n.Message)
		}
	}
}

// Progress returns a bar over max steps
func (d *display) Progress(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(d.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
