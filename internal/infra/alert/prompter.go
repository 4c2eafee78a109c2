package alert

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/errors"
)

// terminalPrompter asks for notification permission interactively. The
// answer maps to the tri-state permission model: yes grants, anything else
// denies, and an aborted read leaves the state unset.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter creates a prompter reading the answer from in and
// writing the question to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) service.PermissionPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *terminalPrompter) Prompt(ctx context.Context) (entity.PermissionState, error) {
	if _, err := fmt.Fprint(p.out, "是否允許桌面通知？[y/N] "); err != nil {
		return entity.PermissionDefault, errors.Wrap(err, "write permission prompt")
	}

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return entity.PermissionDefault, ctx.Err()
	case a := <-ch:
		if a.err != nil {
			return entity.PermissionDefault, errors.Wrap(a.err, "read permission answer")
		}

		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return entity.PermissionGranted, nil
		default:
			return entity.PermissionDenied, nil
		}
	}
}
