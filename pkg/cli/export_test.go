package cli

import (
	"io"

	"github.com/urfave/cli/v3"
)

func NewAppForTest(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return newApp("test", stdin, stdout, stderr)
}
