package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chatdesk-backend/internal/client"
	"chatdesk-backend/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Manage your chats",
	}
	cmd.AddCommand(newChatsListCmd())
	cmd.AddCommand(newChatsNewCmd())
	cmd.AddCommand(newChatsShowCmd())
	cmd.AddCommand(newChatsRmCmd())
	cmd.AddCommand(newChatsWatchCmd())
	return cmd
}

func parseChatID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, errors.Errorf("%q is not a chat id", arg)
	}
	return id, nil
}

// interruptible returns a context cancelled by ctrl-c
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newChatsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your chats, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession()
			if err != nil {
				return err
			}
			chats, err := c.ListChats(cmd.Context())
			if err != nil {
				return err
			}
			title("CHATS")
			printChats(chats, "")
			return nil
		},
	}
}

func newChatsNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new [title]",
		Short: "Start a chat",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession()
			if err != nil {
				return err
			}
			chat, err := c.CreateChat(cmd.Context(), uuid.Nil, strings.Join(args, " "))
			if err != nil {
				return err
			}
			success("created %s (%s)", chat.ID, chat.Title)
			return nil
		},
	}
}

func newChatsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			c, err := requireSession()
			if err != nil {
				return err
			}
			chat, err := c.GetChat(cmd.Context(), chatID)
			if err != nil {
				return err
			}
			messages, err := c.ListMessages(cmd.Context(), chatID)
			if err != nil {
				return err
			}
			title("%s", chat.Title)
			for _, m := range messages {
				printMessage(m)
			}
			return nil
		},
	}
}

func newChatsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <chat-id>",
		Short: "Delete a chat and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			c, err := requireSession()
			if err != nil {
				return err
			}
			if err := c.DeleteChatByID(cmd.Context(), chatID); err != nil {
				return err
			}
			success("deleted %s", chatID)
			return nil
		},
	}
}

// newChatsWatchCmd keeps the chat list on screen and redraws it on every change
func newChatsWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow your chat list live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			c, err := requireSession()
			if err != nil {
				return err
			}
			session, err := whoami(ctx, c)
			if err != nil {
				return err
			}
			stream, err := c.Dial(ctx)
			if err != nil {
				return err
			}
			defer stream.Close()

			chats, err := c.WatchChats(ctx, stream, session.Profile.ID)
			if err != nil {
				return err
			}
			defer chats.Close()

			redraw := func(items []models.Chat, selected string) {
				title("CHATS (live, ctrl-c to stop)")
				printChats(items, selected)
			}
			chats.OnChange(redraw)
			redraw(chats.Items(), chats.Selected())

			select {
			case <-ctx.Done():
			case <-stream.Done():
				if err := stream.Err(); err != nil {
					return errors.Wrap(err, "connection lost")
				}
			}
			return nil
		},
	}
}

func newSendCmd() *cobra.Command {
	var opts struct {
		Model string
	}

	cmd := &cobra.Command{
		Use:   "send <chat-id|new> <message...>",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var chatID uuid.UUID
			if args[0] == "new" {
				chat, err := c.CreateChat(ctx, uuid.Nil, "")
				if err != nil {
					return err
				}
				chatID = chat.ID
				fmt.Printf("chat %s\n", chatID)
			} else if chatID, err = parseChatID(args[0]); err != nil {
				return err
			}

			exchange, err := c.PostMessage(ctx, chatID, strings.Join(args[1:], " "), client.SendOptions{Model: opts.Model})
			if err != nil {
				if exchange != nil && exchange.UserMessage != nil {
					warn("your message was saved but the assistant did not answer")
				}
				return err
			}
			printMessage(*exchange.UserMessage)
			printMessage(*exchange.BotMessage)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "Model override")
	return cmd
}

func newExportCmd() *cobra.Command {
	var opts struct {
		Output  string
		Archive bool
	}

	cmd := &cobra.Command{
		Use:   "export <chat-id>",
		Short: "Download a chat transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			c, err := requireSession()
			if err != nil {
				return err
			}

			if opts.Archive {
				path, err := c.Archive(cmd.Context(), chatID)
				if err != nil {
					return err
				}
				success("archived to %s", path)
				return nil
			}

			text, name, err := c.Export(cmd.Context(), chatID)
			if err != nil {
				return err
			}
			if opts.Output == "-" {
				fmt.Print(text)
				return nil
			}
			if opts.Output != "" {
				name = opts.Output
			}
			if name == "" {
				name = "chat.txt"
			}
			if err := os.WriteFile(name, []byte(text), 0o644); err != nil {
				return errors.Wrapf(err, "writing %s", name)
			}
			success("saved %s", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "File to write, - for stdout (default: server suggested name)")
	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "Store the transcript in the server's export bucket instead")
	return cmd
}
