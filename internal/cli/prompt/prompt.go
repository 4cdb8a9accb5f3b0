// Package prompt reads interactive input for the terminal client.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is swapped in tests so nothing touches the terminal.
var readPassword = term.ReadPassword

// Line prints label and reads one trimmed line. EOF after partial input returns the partial line.
func Line(reader *bufio.Reader, w io.Writer, label string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password reads a secret without echo.
func Password(w io.Writer, label string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// Fill prompts for value when it is empty and returns it unchanged otherwise.
func Fill(reader *bufio.Reader, w io.Writer, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	return Line(reader, w, label)
}
