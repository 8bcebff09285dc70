package main

import (
	"fmt"
	"time"

	"chatdesk-backend/internal/dashboard"
	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin views (requires chatctl login --admin)",
	}
	cmd.AddCommand(newAdminStatsCmd())
	cmd.AddCommand(newAdminWatchCmd())
	cmd.AddCommand(newAdminUsersCmd())
	cmd.AddCommand(newAdminChatsCmd())
	cmd.AddCommand(newAdminToggleCmd())
	cmd.AddCommand(newAdminChangesCmd())
	return cmd
}

func newAdminStatsCmd() *cobra.Command {
	var charts bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession()
			if err != nil {
				return err
			}
			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			title("DASHBOARD")
			printStats(stats)

			if !charts {
				return nil
			}
			ch, err := c.Charts(cmd.Context())
			if err != nil {
				return err
			}
			printCharts(ch)
			return nil
		},
	}

	cmd.Flags().BoolVar(&charts, "charts", false, "Also print the activity charts")
	return cmd
}

func printCharts(ch *dashboard.Charts) {
	printSeries("messages per day", ch.MessagesByDay)
	printSeries("new users per day", ch.UsersByDay)
	printSeries("chats per hour", ch.ChatsByHour)
}

// newAdminWatchCmd streams dashboard snapshots until interrupted
func newAdminWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the dashboard live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			c, err := requireSession()
			if err != nil {
				return err
			}
			stream, err := c.Dial(ctx)
			if err != nil {
				return err
			}
			defer stream.Close()

			snapshots, err := stream.WatchDashboard()
			if err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-stream.Events():
					if !ok {
						return errors.Wrap(stream.Err(), "connection lost")
					}
					if ev.Type == libraries.WebSocketMessageTypeError {
						return errors.New(ev.Error())
					}
				case snap, ok := <-snapshots:
					if !ok {
						return errors.Wrap(stream.Err(), "connection lost")
					}
					title("DASHBOARD %s", snap.GeneratedAt.Local().Format(time.TimeOnly))
					printStats(snap.Stats)
					printCharts(snap.Charts)
				}
			}
		},
	}
}

func newAdminUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users [user-id]",
		Short: "List users, or show one with their chats",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				userID, err := uuid.Parse(args[0])
				if err != nil {
					return errors.Errorf("%q is not a user id", args[0])
				}
				details, err := c.GetUser(cmd.Context(), userID)
				if err != nil {
					return err
				}
				title("%s <%s>", details.FullName, details.Email)
				printSummaries(details.Chats)
				return nil
			}

			users, err := c.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			title("USERS")
			for _, u := range users {
				role := ""
				if u.IsAdmin {
					role = okColor.Sprint(" admin")
				}
				fmt.Printf("%s  %-30s %s%s\n", u.ID, u.Email, u.FullName, role)
			}
			return nil
		},
	}
}

func newAdminChatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List every chat with its owner and message count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession()
			if err != nil {
				return err
			}
			chats, err := c.ListAllChats(cmd.Context())
			if err != nil {
				return err
			}
			title("ALL CHATS")
			printSummaries(chats)
			return nil
		},
	}
}

func printSummaries(chats []models.ChatSummary) {
	if len(chats) == 0 {
		mutedColor.Println("no chats")
		return
	}
	for _, chat := range chats {
		fmt.Printf("%s  %-24s %4d msgs  %s\n", chat.ID, chat.UserEmail, chat.MessageCount, chat.Title)
	}
}

func newAdminToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-admin <user-id>",
		Short: "Grant or revoke the admin flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return errors.Errorf("%q is not a user id", args[0])
			}
			c, err := requireSession()
			if err != nil {
				return err
			}
			profile, err := c.ToggleAdmin(cmd.Context(), userID)
			if err != nil {
				return err
			}
			success("%s admin=%t", profile.Email, profile.IsAdmin)
			return nil
		},
	}
}

func newAdminChangesCmd() *cobra.Command {
	var opts struct {
		Since uint64
		Table string
		Limit int
	}

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Page through the change log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession()
			if err != nil {
				return err
			}
			page, err := c.Changes(cmd.Context(), opts.Since, opts.Table, opts.Limit)
			if err != nil {
				return err
			}
			for _, change := range page.Changes {
				fmt.Printf("%6d %s %-8s %-6s %s\n", change.Seq, change.CreatedAt.Local().Format(time.DateTime), change.Table, change.EventType, mutedColor.Sprint(string(change.Payload)))
			}
			mutedColor.Printf("next: --since %d\n", page.Next)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&opts.Since, "since", 0, "Only events after this sequence number")
	cmd.Flags().StringVar(&opts.Table, "table", "", "Only events of this table")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Page size")
	return cmd
}
