package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/memohai/teleput/internal/bindings"
	"github.com/memohai/teleput/internal/keygen"
)

// keyStore is the part of bindings.Service the admin commands use.
type keyStore interface {
	UpsertForConversation(ctx context.Context, chatID int64, renew bool) (string, error)
	Resolve(ctx context.Context, token string) (int64, error)
	Get(ctx context.Context, chatID int64) (bindings.Binding, error)
	Remove(ctx context.Context, chatID int64) error
}

func newKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect and manage chat keys",
	}
	cmd.AddCommand(
		keysSubcommand("get <chat-id>", "Show the key bound to a chat", runKeysGet),
		keysSubcommand("new <chat-id>", "Issue a fresh key for a chat, replacing the old one", runKeysNew),
		keysSubcommand("revoke <chat-id>", "Remove the key bound to a chat", runKeysRevoke),
		keysSubcommand("resolve <key>", "Show the chat a key is bound to", runKeysResolve),
	)
	return cmd
}

type keysRunner func(ctx context.Context, out io.Writer, keys keyStore, arg string) error

func keysSubcommand(use, short string, run keysRunner) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := openStore(ctx, log, cfg.Storage)
			if err != nil {
				return err
			}
			defer s.Close()
			gen, err := keygen.New(cfg.Keys.Alphabet, cfg.Keys.Length)
			if err != nil {
				return fmt.Errorf("key generator: %w", err)
			}
			return run(ctx, cmd.OutOrStdout(), bindings.NewService(log, s.Repo, gen), args[0])
		},
	}
}

func runKeysGet(ctx context.Context, out io.Writer, keys keyStore, arg string) error {
	chatID, err := parseChatID(arg)
	if err != nil {
		return err
	}
	b, err := keys.Get(ctx, chatID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\t%s\n", b.Token, b.CreatedAt.Format("2006-01-02 15:04:05"))
	return err
}

func runKeysNew(ctx context.Context, out io.Writer, keys keyStore, arg string) error {
	chatID, err := parseChatID(arg)
	if err != nil {
		return err
	}
	token, err := keys.UpsertForConversation(ctx, chatID, true)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func runKeysRevoke(ctx context.Context, out io.Writer, keys keyStore, arg string) error {
	chatID, err := parseChatID(arg)
	if err != nil {
		return err
	}
	if err := keys.Remove(ctx, chatID); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, "revoked")
	return err
}

func runKeysResolve(ctx context.Context, out io.Writer, keys keyStore, arg string) error {
	chatID, err := keys.Resolve(ctx, arg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, chatID)
	return err
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q", s)
	}
	return id, nil
}
