package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/browser"
	"golang.org/x/term"
)

// Terminal authorizes by opening the authorization page in a browser and
// reading the token the user pastes back.
type Terminal struct {
	In  *os.File
	Out io.Writer

	// Open opens a URL. It defaults to the system browser.
	Open func(url string) error

	reader *bufio.Reader
}

// NewTerminal creates a Terminal on stdin and stderr.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr, Open: browser.OpenURL}
}

type noWindow struct{}

func (noWindow) Close() error { return nil }

// Authorize implements Authorizer. The token is read without echo when
// the input is a terminal.
func (t *Terminal) Authorize(ctx context.Context, authURL string, opts AuthorizeOptions) (string, error) {
	fmt.Fprintf(t.Out, "Open this page to authorize the player:\n\n  %s\n\n", authURL) //nolint:errcheck
	if t.Open != nil {
		if err := t.Open(authURL); err != nil {
			log.Debug("Could not open browser", "err", err)
		}
	}
	if opts.WindowCallback != nil {
		opts.WindowCallback(noWindow{})
	}

	for {
		fmt.Fprint(t.Out, "Paste the token: ") //nolint:errcheck
		token, err := t.readToken()
		if err != nil {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if opts.ValidToken == nil || opts.ValidToken(token) {
			return token, nil
		}
		fmt.Fprintln(t.Out, "That does not look like a token, try again.") //nolint:errcheck
	}
}

func (t *Terminal) readToken() (string, error) {
	fd := int(t.In.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(t.Out) //nolint:errcheck
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
