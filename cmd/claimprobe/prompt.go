package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"claimprobe/internal/config"

	"golang.org/x/term"
)

var errNotInteractive = errors.New("stdin is not a terminal")

// interactive reports whether stdin is a terminal. Overridden in tests.
var interactive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptCredentials asks for a missing username (or any username when
// askUser is set) and password. The password is read without echo.
func promptCredentials(c *config.Config, askUser bool) error {
	if !interactive() {
		return errNotInteractive
	}

	if askUser || c.Login() == "" {
		def := c.Login()
		if def != "" {
			fmt.Fprintf(os.Stderr, "Username [%s]: ", def)
		} else {
			fmt.Fprint(os.Stderr, "Username: ")
		}
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		if user := strings.TrimSpace(line); user != "" {
			c.Username = user
		} else {
			c.Username = def
		}
	}

	if c.Password == "" {
		fmt.Fprintf(os.Stderr, "Password for %s: ", c.Login())
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		c.Password = string(pw)
	}
	return nil
}
