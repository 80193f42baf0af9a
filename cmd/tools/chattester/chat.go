package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/sky-inn/backend/internal/app"
	"github.com/zhouzirui/sky-inn/backend/internal/config"
	"github.com/zhouzirui/sky-inn/backend/internal/dao"
	"github.com/zhouzirui/sky-inn/backend/internal/model/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/service/conversation"
)

// newChatCmd runs an interactive conversation through the full turn flow.
func newChatCmd() *cobra.Command {
	var opts struct {
		DB       string
		UserID   int64
		Username string
		Title    string
		Scenario string
		Verbose  bool
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the persona interactively",
		Long: `Talk to the persona interactively.

Lines starting with a slash are commands:
  /forget <text>    hide a previous message from memory
  /remember <text>  restore a hidden message
  /context          print the scenario and recent exchanges
  /quit             exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Store = config.StoreConfig{Driver: config.DriverSQLite, DSN: opts.DB, LogLevel: "silent"}

			lg := zap.NewNop()
			if opts.Verbose {
				if lg, err = zap.NewDevelopment(); err != nil {
					return err
				}
			}

			db, err := dao.Open(cfg.Store)
			if err != nil {
				return err
			}
			defer func() { _ = dao.Close(db) }()

			ctx := cmd.Context()
			a, err := app.Build(ctx, cfg, db, lg)
			if err != nil {
				return err
			}

			if err := a.Store.AddUser(ctx, chat.User{ID: opts.UserID, Username: opts.Username}); err != nil {
				return err
			}
			created, err := a.Store.CreateChat(ctx, opts.UserID, opts.Title, opts.Scenario)
			if err != nil {
				return err
			}

			session := &replSession{
				conv:   a.Conversation,
				chatID: created.ID,
				userID: opts.UserID,
				out:    cmd.OutOrStdout(),
			}
			return session.run(cmd, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&opts.DB, "db", ":memory:", "SQLite database path")
	cmd.Flags().Int64Var(&opts.UserID, "user", 12345, "User id")
	cmd.Flags().StringVar(&opts.Username, "username", "tester", "Username")
	cmd.Flags().StringVar(&opts.Title, "title", "chattester", "Chat title")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "Scene description")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log turns to stderr")
	return cmd
}

type replSession struct {
	conv   *conversation.Service
	chatID int64
	userID int64
	out    io.Writer
}

func (s *replSession) run(cmd *cobra.Command, in io.Reader) error {
	ctx := cmd.Context()
	name := s.conv.Persona().Name
	fmt.Fprintf(s.out, "%s: %s\n", name, s.conv.Greeting())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		command, rest, _ := strings.Cut(line, " ")
		switch command {
		case "/quit", "/exit":
			return nil
		case "/forget", "/remember":
			apply := s.conv.Forget
			if command == "/remember" {
				apply = s.conv.Remember
			}
			changed, err := apply(ctx, s.chatID, strings.TrimSpace(rest))
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "[%s] changed=%v\n", strings.TrimPrefix(command, "/"), changed)
		case "/context":
			text, err := s.conv.Context(ctx, s.chatID)
			if err != nil {
				return err
			}
			fmt.Fprint(s.out, text)
		default:
			res, err := s.conv.Reply(ctx, conversation.Turn{ChatID: s.chatID, UserID: s.userID, Text: line})
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s: %s\n", name, res.Reply)
			fmt.Fprintf(s.out, "  [emotion=%s empathy=%d source=%s]\n", res.Emotion, res.Empathy, res.Source)
		}
	}
}
