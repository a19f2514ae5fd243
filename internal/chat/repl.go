package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// REPL reads one message per line from in and writes each reply to out
// until "bye", EOF or ctx is done. Failed turns are reported and the loop
// goes on.
func REPL(ctx context.Context, svc *Service, in io.Reader, out io.Writer) error {
	name := svc.AssistantName()
	sessionID := svc.Session("").ID()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		// the message goes out as typed, like over HTTP; only the exit
		// command ignores surrounding spaces
		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), "bye") {
			fmt.Fprintf(out, "%s: Goodbye!\n", name)
			return nil
		}

		res, err := svc.Send(ctx, sessionID, line)
		switch {
		case errors.Is(err, ErrEmptyMessage):
			continue
		case err != nil:
			fmt.Fprintf(out, "%s: sorry, something went wrong: %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", name, res.Reply.Content)
	}
}
