// Command clubctl signs in to the club site API from a terminal and keeps
// the session token in the user's config directory.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/yangjihun/FM-COMMIT/internal/client"
	"github.com/yangjihun/FM-COMMIT/internal/models"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

const usage = `usage: clubctl [flags] <command> [args]

commands:
  login-google <id-token>   sign in with a Google ID token
  login <email>             sign in with a password (prompted)
  whoami                    print the signed-in user
  logout                    revoke the session and forget the token
  admin-check               exit 0 only when signed in as an admin

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("clubctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	defaultAPI := os.Getenv("CLUB_API_URL")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:5000/api"
	}
	apiURL := fs.String("api", defaultAPI, "API base URL (env CLUB_API_URL)")
	tokenPath := fs.String("token-file", "", "token file (default <config dir>/clubctl/token)")
	timeout := fs.Duration("timeout", 15*time.Second, "request timeout")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	path := *tokenPath
	if path == "" {
		p, err := client.DefaultTokenPath()
		if err != nil {
			fmt.Fprintf(stderr, "clubctl: %v\n", err)
			return 1
		}
		path = p
	}
	sess := client.NewSession(client.NewAPI(*apiURL, nil), client.NewFileTokenStore(path))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if err := dispatch(ctx, sess, cmd, rest, stdin, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "clubctl: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("invalid usage")

func dispatch(ctx context.Context, sess *client.Session, cmd string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	switch cmd {
	case "login-google":
		if len(args) != 1 {
			return fmt.Errorf("%w: login-google <id-token>", errUsage)
		}
		u, err := sess.Login(ctx, args[0])
		if err != nil {
			return err
		}
		printUser(stdout, u)
	case "login":
		if len(args) != 1 {
			return fmt.Errorf("%w: login <email>", errUsage)
		}
		pw, err := promptPassword(stdin, stderr)
		if err != nil {
			return err
		}
		u, err := sess.PasswordLogin(ctx, args[0], pw)
		if err != nil {
			return err
		}
		printUser(stdout, u)
	case "whoami":
		if _, err := sess.Restore(ctx); err != nil {
			return err
		}
		if err := sess.Guard(false); err != nil {
			return err
		}
		printUser(stdout, sess.User())
	case "logout":
		if err := sess.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "logged out")
	case "admin-check":
		if _, err := sess.Restore(ctx); err != nil {
			return err
		}
		if err := sess.Guard(true); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return nil
}

// promptPassword reads without echo from a terminal and falls back to a
// plain line read when stdin is piped.
func promptPassword(stdin io.Reader, w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printUser(w io.Writer, u *models.User) {
	if u == nil {
		return
	}
	fmt.Fprintf(w, "%s <%s> level=%s id=%s\n", u.Name, u.Email, u.Role, u.ID)
}
