// Command twofa is the terminal client for the twofa API.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	e := &env{
		ctx:        ctx,
		out:        os.Stdout,
		in:         bufio.NewReader(os.Stdin),
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}

	err := newApp(e).Run(os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "twofa:", err)

		code := 1
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			code = ec.ExitCode()
		}
		os.Exit(code)
	}
}
