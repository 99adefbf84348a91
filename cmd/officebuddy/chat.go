package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/transport"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

type chatOptions struct {
	natsURL   string
	prefix    string
	timeout   time.Duration
	sessionID string
	user      models.UserProfile
}

// chatClient is the part of transport.Client the REPL needs
type chatClient interface {
	Login(sessionID string, user models.UserProfile) (*models.ChatResponse, error)
	Chat(sessionID, message string) (*models.ChatResponse, error)
	Clear(sessionID string) (*models.ChatResponse, error)
	Logout(sessionID string) (*models.ChatResponse, error)
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running OfficeBuddy service over NATS",
		Long: `Logs in with the given identity and opens an interactive session.

Commands inside the session:
  /clear   forget the conversation but stay logged in
  /logout  end the session and exit
  exit     leave without logging out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.user.UserID == "" {
				return fmt.Errorf("--user-id is required")
			}
			if opts.sessionID == "" {
				opts.sessionID = uuid.NewString()
			}

			conn, err := nats.Connect(opts.natsURL, nats.Name("officebuddy-cli"), nats.Timeout(opts.timeout))
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer conn.Close()

			client := transport.NewClient(conn, opts.prefix, opts.timeout)
			return runChat(client, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.natsURL, "nats", nats.DefaultURL, "NATS server URL")
	f.StringVar(&opts.prefix, "prefix", "officebuddy", "subject prefix of the service")
	f.DurationVar(&opts.timeout, "timeout", 60*time.Second, "per-request timeout")
	f.StringVar(&opts.sessionID, "session", "", "session id (random when empty)")
	f.StringVar(&opts.user.UserID, "user-id", "", "backend user id")
	f.StringVar(&opts.user.Name, "name", "", "display name")
	f.StringVar(&opts.user.Email, "email", "", "email address")
	f.StringVar(&opts.user.Department, "department", "", "department")
	f.StringVar(&opts.user.Token, "token", "", "backend bearer token")
	return cmd
}

func runChat(client chatClient, opts *chatOptions, in io.Reader, out io.Writer) error {
	resp, err := client.Login(opts.sessionID, opts.user)
	if err != nil {
		return err
	}
	if resp.Status == models.StatusError {
		return fmt.Errorf("login failed: %s", errorText(resp))
	}
	fmt.Fprintf(out, "Logged in as %s (session %s)\n", displayName(opts.user), opts.sessionID)
	if resp.Reply != "" {
		fmt.Fprintf(out, "officebuddy> %s\n", resp.Reply)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/clear":
			if _, err := client.Clear(opts.sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, "(conversation cleared)")
			continue
		case "/logout":
			_, err := client.Logout(opts.sessionID)
			if err == nil {
				fmt.Fprintln(out, "Goodbye!")
			}
			return err
		}

		resp, err := client.Chat(opts.sessionID, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if resp.Status == models.StatusError && resp.ErrorCode != nil && *resp.ErrorCode == models.ErrorNotLoggedIn {
			return fmt.Errorf("session expired, please start a new chat")
		}
		fmt.Fprintf(out, "officebuddy> %s\n", resp.Reply)
	}
}

func displayName(u models.UserProfile) string {
	if u.Name != "" {
		return u.Name
	}
	return u.UserID
}

func errorText(resp *models.ChatResponse) string {
	if resp.ErrorMessage != nil {
		return *resp.ErrorMessage
	}
	return resp.Reply
}
