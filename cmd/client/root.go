package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/omochice/relay-chat-client/internal/chat"
	"github.com/omochice/relay-chat-client/internal/config"
	"github.com/omochice/relay-chat-client/internal/roster"
	"github.com/spf13/cobra"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
)

var errNoUsername = errors.New("no username entered")

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "client",
		Short:         "Terminal chat client for a WebSocket relay",
		Long:          "client logs in to a chat relay under a username and lets you chat with the contacts in your roster. With --demo it runs offline and simulates replies.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			contacts, err := roster.Load(cfg.Roster)
			if err != nil {
				return fmt.Errorf("load roster: %w", err)
			}

			sess := chat.New(chat.Options{
				Host:          cfg.Host,
				Secure:        cfg.Secure,
				Demo:          cfg.Demo,
				Roster:        contacts,
				ResetOnSelect: cfg.ResetOnSelect,
				Policy:        cfg.Reconnect.ReconnectPolicy(),
			})
			defer sess.Close()

			scanner := bufio.NewScanner(in)
			w := newSyncWriter(out)

			username, err := promptUsername(scanner, w, cfg.Username)
			if err != nil {
				return err
			}
			if err := sess.Login(username); err != nil {
				return err
			}
			if cfg.Demo {
				log.Printf("Running in demo mode as %s", username)
			} else {
				log.Printf("Connecting to %s as %s", cfg.Host, username)
			}

			return newREPL(sess, w).run(cmd.Context(), scanner)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// validateUsername enforces the login form's length limits.
func validateUsername(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("username must be %d-%d characters, got %d", minUsernameLen, maxUsernameLen, n)
	}
	return nil
}

// promptUsername returns preset when it is valid and otherwise asks until a
// valid name is entered.
func promptUsername(scanner *bufio.Scanner, out io.Writer, preset string) (string, error) {
	if preset != "" {
		if err := validateUsername(preset); err != nil {
			return "", err
		}
		return strings.TrimSpace(preset), nil
	}

	for {
		fmt.Fprint(out, "Username: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("read username: %w", err)
			}
			return "", errNoUsername
		}
		name := strings.TrimSpace(scanner.Text())
		if err := validateUsername(name); err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		return name, nil
	}
}
