package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errNoQuery = errors.New("no query given: pass it as an argument, with --input, or on stdin")

// readQuery returns the SQL given as arguments, read from the --input file,
// or read from stdin when there are no arguments or the argument is "-".
func readQuery(cmd *cobra.Command, args []string, inputPath string) (string, error) {
	var query string
	switch {
	case inputPath != "":
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", inputPath, err)
		}
		query = string(data)
	case len(args) == 1 && args[0] == "-", len(args) == 0:
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return "", errNoQuery
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		query = string(data)
	default:
		query = strings.Join(args, " ")
	}

	if strings.TrimSpace(query) == "" {
		return "", errNoQuery
	}
	return query, nil
}
