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
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// GetSimpleText prints a prompt to w and reads a single line of input from
// reader. The trailing newline is trimmed. If EOF occurs after some input
// was read, the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
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

// GetSecret prints a labelled prompt to w and reads a secret from the
// user's terminal without echo. A newline is printed after the read to keep
// the UI tidy.
func GetSecret(label string, w io.Writer) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return "", err
	}
	secret, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

// GetSecretConfirmed reads a secret twice and fails if the entries differ,
// used when a new PIN or backup password is being set.
func GetSecretConfirmed(label string, w io.Writer) (string, error) {
	first, err := GetSecret(label, w)
	if err != nil {
		return "", err
	}
	second, err := GetSecret(label+" (repeat)", w)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("entries do not match")
	}
	if first == "" {
		return "", errors.New("empty secret")
	}
	return first, nil
}
