package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeName turns a slide title into a file name.
func SafeName(name string) string {
	s := unsafeName.ReplaceAllString(name, "-")
	if s == "" || s == "-" {
		return "Bronify-Wrapped"
	}
	return s
}

func writeCard(dir string, card Card) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, SafeName(card.Name)+".png")
	if err := os.WriteFile(path, card.PNG, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// DownloadSharer saves the card to a directory. It can always share.
type DownloadSharer struct {
	Dir string
}

func (d *DownloadSharer) Method() string { return "download" }

func (d *DownloadSharer) CanShare() bool { return true }

func (d *DownloadSharer) Share(_ context.Context, card Card) (string, error) {
	return writeCard(d.Dir, card)
}

// CommandSharer hands the saved card to an OS command (xdg-open, a
// messenger CLI). The card path is appended to Args. Exit code 130 or a
// cancelled context count as the viewer dismissing the share.
type CommandSharer struct {
	Args []string
	Dir  string
}

func (c *CommandSharer) Method() string { return "command" }

func (c *CommandSharer) CanShare() bool {
	if len(c.Args) == 0 {
		return false
	}
	_, err := exec.LookPath(c.Args[0])
	return err == nil
}

func (c *CommandSharer) Share(ctx context.Context, card Card) (string, error) {
	path, err := writeCard(c.Dir, card)
	if err != nil {
		return "", err
	}
	args := append(append([]string(nil), c.Args[1:]...), path)
	cmd := exec.CommandContext(ctx, c.Args[0], args...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return path, nil
	}
	if ctx.Err() != nil {
		return "", ErrCancelled
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 130 {
		return "", ErrCancelled
	}
	return "", fmt.Errorf("%s: %w: %s", c.Args[0], err, out)
}
