package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmOptions configures the confirm prompt behavior
type ConfirmOptions struct {
	// Default sets whether Y or N is the default (true = Y, false = N)
	Default bool
	// HideHint hides the [y/N] hint
	HideHint bool
}

// Confirm prompts the user for confirmation on stdout/stdin. Returns
// true if the user confirmed, false otherwise.
func Confirm(prompt string) bool {
	return ConfirmWriter(os.Stdout, os.Stdin, prompt, ConfirmOptions{})
}

// ConfirmWriter prompts using the given writer and reader.
func ConfirmWriter(w io.Writer, r io.Reader, prompt string, opts ConfirmOptions) bool {
	var hint string
	if !opts.HideHint {
		if opts.Default {
			hint = " [Y/n]"
		} else {
			hint = " [y/N]"
		}
	}
	fmt.Fprintf(w, "%s%s ", prompt, hint)

	reader := bufio.NewReader(r)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer == "" {
		return opts.Default
	}
	return answer == "y" || answer == "yes"
}
