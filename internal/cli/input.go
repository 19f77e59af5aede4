package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// getSimpleText prints a prompt to w and reads a single line of input.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
func getSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
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

// getSecretText prints a prompt and reads an answer from the terminal
// without echo. Falls back to plain reading when stdin is not a terminal
// (e.g. piped input in tests).
func getSecretText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return getSimpleText(reader, prompt, w)
	}

	if _, err := fmt.Fprint(w, prompt+" "); err != nil {
		return "", err
	}
	secret, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}
