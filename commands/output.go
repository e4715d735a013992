package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"snap2sell/gateway"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func printOK(w io.Writer, format string, args ...any) {
	okColor.Fprintf(w, "✓ "+format+"\n", args...)
}

// failure prints msg and returns it as the command error so the exit status is non-zero.
func failure(w io.Writer, msg string) error {
	failColor.Fprintf(w, "✗ %s\n", msg)
	return errSilent{msg}
}

func apiFailure(w io.Writer, err error, fallback string) error {
	return failure(w, gateway.MessageFrom(err, fallback))
}

// errSilent has already been shown to the user.
type errSilent struct{ msg string }

func (e errSilent) Error() string { return e.msg }

// Reported tells main whether err was already printed.
func Reported(err error) bool {
	var silent errSilent
	return errors.As(err, &silent)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func table(w io.Writer, header string, rows func(tw io.Writer)) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	dimColor.Fprintln(tw, header)
	rows(tw)
	_ = tw.Flush()
}

func pageFooter(w io.Writer, page, pages, total int) {
	dimColor.Fprintf(w, "page %d of %d (%d total)\n", page, pages, total)
}

func fmtRow(w io.Writer, cols ...any) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
