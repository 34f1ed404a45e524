package cli

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ReadPassword asks for the password of user on the terminal without
// echoing it.
func ReadPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no password given and stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "Enter the password for '%v': ", user)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
