package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is swapped in tests to avoid touching the terminal.
var readPassword = term.ReadPassword

func (e *env) readLine(prompt string) (string, error) {
	fmt.Fprint(e.out, prompt)

	line, err := e.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

// readSecret reads without echo on a terminal and falls back to a plain line
// when input is piped.
func (e *env) readSecret(prompt string) (string, error) {
	if !e.isTerminal() {
		return e.readLine(prompt)
	}

	fmt.Fprint(e.out, prompt)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(e.out)
	if err != nil {
		return "", err
	}

	return string(pw), nil
}

func (e *env) valueOrPrompt(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return e.readLine(prompt)
}
