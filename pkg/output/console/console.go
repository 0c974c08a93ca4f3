package console

import (
	"fmt"
	"io"
	"os"

	"github.com/ericogr/envframe/pkg/output"
)

// ConsoleOutput is the line-oriented frame channel: one hex frame per line.
type ConsoleOutput struct {
	w io.Writer
}

func NewConsole() output.Output { return &ConsoleOutput{w: os.Stdout} }

func NewConsoleWriter(w io.Writer) output.Output { return &ConsoleOutput{w: w} }

func (c *ConsoleOutput) Publish(e output.Emission) error {
	_, err := fmt.Fprintln(c.w, e.Hex)
	return err
}

func (c *ConsoleOutput) Close() error { return nil }
