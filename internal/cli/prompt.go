package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/rcliao/tripplan/internal/workbench"
)

// readPassword reads a password from passwordFile, or prompts on the
// terminal with echo disabled. A passwordFile of "-" reads one line from stdin.
func readPassword(passwordFile string) (string, error) {
	switch passwordFile {
	case "":
	case "-":
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return nonEmpty(strings.TrimRight(line, "\r\n"), "stdin")
	default:
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", passwordFile, err)
		}
		return nonEmpty(strings.TrimRight(string(data), "\r\n"), passwordFile)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for the password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return nonEmpty(string(b), "prompt")
}

func nonEmpty(password, source string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("empty password from %s", source)
	}
	return password, nil
}

// lineConfirmer asks a yes/no question and reads the answer from r.
type lineConfirmer struct {
	r *bufio.Reader
	w io.Writer
}

func (c lineConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(c.w, "%s [y/N] ", prompt)
	line, err := c.r.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func confirmer(assumeYes bool) workbench.Confirmer {
	if assumeYes {
		return workbench.ConfirmFunc(func(string) bool { return true })
	}
	return lineConfirmer{r: bufio.NewReader(os.Stdin), w: os.Stderr}
}
