package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shandysiswandi/twofa/internal/client"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
	"github.com/shandysiswandi/twofa/internal/pkg/qrcode"
	"github.com/urfave/cli"
)

func registerCommand(e *env) cli.Command {
	return cli.Command{
		Name:  "register",
		Usage: "create an account",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "username, u", Usage: "5 to 32 characters of a-z, 0-9, _ . -"},
			cli.StringFlag{Name: "recaptcha-token", Usage: "token when the server enforces reCAPTCHA"},
		},
		Action: func(c *cli.Context) error {
			username, err := e.valueOrPrompt(c.String("username"), "Username: ")
			if err != nil {
				return err
			}
			password, err := e.readSecret("Password: ")
			if err != nil {
				return err
			}
			confirm, err := e.readSecret("Repeat password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return cli.NewExitError("passwords do not match", 1)
			}

			acc, err := e.api.Register(e.ctx, username, password, c.String("recaptcha-token"))
			if err != nil {
				return err
			}

			fmt.Fprintf(e.out, "Registered %s, now run: twofa login -u %s\n", acc.Username, acc.Username)
			return nil
		},
	}
}

func loginCommand(e *env) cli.Command {
	return cli.Command{
		Name:  "login",
		Usage: "sign in and remember the session",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "username, u"},
			cli.StringFlag{Name: "recaptcha-token"},
		},
		Action: func(c *cli.Context) error {
			username, err := e.valueOrPrompt(c.String("username"), "Username: ")
			if err != nil {
				return err
			}
			password, err := e.readSecret("Password: ")
			if err != nil {
				return err
			}

			if err := e.api.Login(e.ctx, username, password, c.String("recaptcha-token")); err != nil {
				return err
			}

			fmt.Fprintf(e.out, "Logged in as %s\n", username)
			return nil
		},
	}
}

func logoutCommand(e *env) cli.Command {
	return cli.Command{
		Name:  "logout",
		Usage: "end the session and forget the saved token",
		Action: func(*cli.Context) error {
			if err := e.api.Logout(e.ctx); err != nil {
				fmt.Fprintln(e.out, "Logged out locally; the server did not confirm:", err)
				return nil
			}

			fmt.Fprintln(e.out, "Logged out")
			return nil
		},
	}
}

func listCommand(e *env) cli.Command {
	return cli.Command{
		Name:    "ls",
		Aliases: []string{"list"},
		Usage:   "list stored accounts",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "tag", Usage: "only accounts with this tag"},
			cli.StringFlag{Name: "search, s", Usage: "match name or description"},
			cli.IntFlag{Name: "take", Value: 100},
			cli.IntFlag{Name: "skip"},
		},
		Action: func(c *cli.Context) error {
			if err := e.requireLogin(); err != nil {
				return err
			}

			out, err := e.api.List(e.ctx, client.ListParams{
				Take:   c.Int("take"),
				Skip:   c.Int("skip"),
				Tag:    c.String("tag"),
				Search: c.String("search"),
			})
			if err != nil {
				return err
			}

			if len(out.Items) == 0 {
				fmt.Fprintln(e.out, "No accounts yet, add one with: twofa import")
				return nil
			}

			tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTAGS\tDESCRIPTION")
			for _, a := range out.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, strings.Join(a.Tags, ","), a.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if shown := int64(out.Skip + len(out.Items)); shown < out.Total {
				fmt.Fprintf(e.out, "%d of %d shown, use --skip %d for more\n", len(out.Items), out.Total, shown)
			}
			return nil
		},
	}
}

func codeCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "code",
		Usage:     "print the current code of an account",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "local", Usage: "derive the code here from the stored secret"},
		},
		Action: func(c *cli.Context) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			id := c.Args().First()
			if id == "" {
				return cli.NewExitError("missing account ID, see: twofa ls", 1)
			}

			if !c.Bool("local") {
				code, err := e.api.Code(e.ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(e.out, "%s  %s  (%ds left)\n", code.Name, code.Code, code.Remaining)
				return nil
			}

			a, err := e.api.Detail(e.ctx, id)
			if err != nil {
				return err
			}

			now := time.Now()
			code, err := otp.Generate(a.Secret, now)
			if err != nil {
				code = otp.ErrorMarker
			}
			fmt.Fprintf(e.out, "%s  %s  (%ds left)\n", a.Name, code, otp.TimeRemaining(now))
			return nil
		},
	}
}

func importCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "import",
		Usage:     "add accounts from a backup file or an otpauth URI",
		ArgsUsage: "[FILE]",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "uri", Usage: "otpauth://totp/... as shown under a QR code"},
			cli.StringFlag{Name: "idempotency-key", Usage: "reuse to retry an import safely (default: random)"},
		},
		Action: func(c *cli.Context) error {
			if err := e.requireLogin(); err != nil {
				return err
			}

			if uri := c.String("uri"); uri != "" {
				a, err := e.api.ImportURI(e.ctx, uri)
				if err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Added %s (%s)\n", a.Name, a.ID)
				return nil
			}

			path := c.Args().First()
			if path == "" {
				return cli.NewExitError("give a backup FILE or --uri", 1)
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			var entries []client.Entry
			if err := json.Unmarshal(raw, &entries); err != nil {
				return cli.NewExitError(fmt.Sprintf("%s is not a backup file: %v", path, err), 1)
			}

			key := c.String("idempotency-key")
			if key == "" {
				key = uuid.NewString()
			}

			out, err := e.api.Import(e.ctx, entries, key)
			if err != nil {
				return err
			}

			if out.Replayed {
				fmt.Fprintln(e.out, "This import already ran, showing its result")
			}
			fmt.Fprintf(e.out, "Imported %d, skipped %d\n", out.Success, out.Failure)
			for _, ie := range out.Errors {
				fmt.Fprintf(e.out, "  entry %d: %s\n", ie.Index, ie.Reason)
			}
			return nil
		},
	}
}

func exportCommand(e *env) cli.Command {
	return cli.Command{
		Name:  "export",
		Usage: "download a backup file, or show one account as a QR code",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "dir, d", Value: ".", Usage: "where the backup file is written"},
			cli.StringFlag{Name: "qr", Usage: "account ID to render as a QR code instead"},
			cli.StringFlag{Name: "issuer", Value: "2FA Authenticator", Usage: "issuer shown by the scanning app"},
		},
		Action: func(c *cli.Context) error {
			if err := e.requireLogin(); err != nil {
				return err
			}

			if id := c.String("qr"); id != "" {
				return e.printQR(id, c.String("issuer"))
			}

			backup, err := e.api.Export(e.ctx)
			if err != nil {
				return err
			}

			path := filepath.Join(c.String("dir"), filepath.Base(backup.Filename))
			if err := os.WriteFile(path, backup.Body, 0o600); err != nil {
				return err
			}

			fmt.Fprintf(e.out, "Wrote %s\n", path)
			return nil
		},
	}
}

func (e *env) printQR(id, issuer string) error {
	a, err := e.api.Detail(e.ctx, id)
	if err != nil {
		return err
	}

	uri, err := otp.BuildURI(otp.Key{Issuer: issuer, Account: a.Name, Secret: a.Secret})
	if err != nil {
		return err
	}

	art, err := qrcode.Text(uri)
	if err != nil {
		return err
	}

	fmt.Fprintln(e.out, art)
	fmt.Fprintln(e.out, uri)
	return nil
}
