package main

import (
	"bufio"
	"context"
	"io"

	"github.com/shandysiswandi/twofa/internal/client"
	"github.com/urfave/cli"
)

const defaultServer = "http://localhost:8080"

type env struct {
	ctx        context.Context
	out        io.Writer
	in         *bufio.Reader
	isTerminal func() bool

	session *client.Session
	api     *client.Client
}

func newApp(e *env) *cli.App {
	app := cli.NewApp()
	app.Name = "twofa"
	app.Usage = "manage two-factor accounts and show their codes"
	app.Version = "1.0.0"
	app.Writer = e.out
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "server",
			Value:  defaultServer,
			EnvVar: "TWOFA_SERVER",
			Usage:  "base URL of the twofa API",
		},
		cli.StringFlag{
			Name:   "session-file",
			EnvVar: "TWOFA_SESSION_FILE",
			Usage:  "where the login is kept (default: user config dir)",
		},
	}
	app.Before = e.setup
	// main prints the error and picks the exit code
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Commands = []cli.Command{
		registerCommand(e),
		loginCommand(e),
		logoutCommand(e),
		listCommand(e),
		codeCommand(e),
		watchCommand(e),
		importCommand(e),
		exportCommand(e),
	}

	return app
}

// setup builds the session and API client shared by every command.
func (e *env) setup(c *cli.Context) error {
	var store client.TokenStore
	if path := c.GlobalString("session-file"); path != "" {
		store = client.NewFileTokenStore(path)
	} else {
		s, err := client.DefaultTokenStore()
		if err != nil {
			return err
		}
		store = s
	}

	e.session = client.NewSession(store)
	if err := e.session.Init(e.ctx); err != nil {
		return err
	}
	e.api = client.New(c.GlobalString("server"), e.session)

	return nil
}

func (e *env) requireLogin() error {
	if !e.session.Authenticated() {
		return cli.NewExitError("not logged in, run: twofa login", 2)
	}
	return nil
}
