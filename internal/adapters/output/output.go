package output

import (
	"io"
	"os"
)

// Printer renders command results.
type Printer interface {
	Print(v any) error
}

// New returns the JSON printer when asJSON is set, the human one otherwise.
func New(out io.Writer, asJSON bool) Printer {
	if asJSON {
		return JSONPrinter{Out: out}
	}
	return HumanPrinter{Out: out}
}

func writer(out io.Writer) io.Writer {
	if out == nil {
		return os.Stdout
	}
	return out
}
