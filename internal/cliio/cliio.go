// SPDX-License-Identifier: MIT
package cliio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/skaphos/benchkeeper/internal/tableutil"
)

// StdinPath is the path argument that selects standard input.
const StdinPath = "-"

// ReadInput reads path, or stdin when path is StdinPath.
func ReadInput(path string, stdin io.Reader) ([]byte, error) {
	switch strings.TrimSpace(path) {
	case "":
		return nil, errors.New("no input file given")
	case StdinPath:
		if stdin == nil {
			return nil, errors.New("stdin is not available")
		}
		return io.ReadAll(stdin)
	default:
		return os.ReadFile(path)
	}
}

// PromptYesNo writes prompt and reads a yes/no response from input.
func PromptYesNo(out io.Writer, in io.Reader, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, err
	}
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	choice := strings.ToLower(strings.TrimSpace(line))
	return choice == "y" || choice == "yes", nil
}

// Confirm asks for confirmation unless assumeYes is set.
func Confirm(out io.Writer, in io.Reader, prompt string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	return PromptYesNo(out, in, prompt)
}

// WriteTable renders a simple tab-separated table with optional headers.
func WriteTable(out io.Writer, stripEscape bool, noHeaders bool, headers []string, rows [][]string) error {
	w := tableutil.New(out, stripEscape)
	if err := tableutil.PrintHeaders(w, noHeaders, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}
