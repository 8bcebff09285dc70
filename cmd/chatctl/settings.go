package main

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage admin key/value settings",
	}
	cmd.AddCommand(newSettingsListCmd())
	cmd.AddCommand(newSettingsAddCmd())
	cmd.AddCommand(newSettingsSetCmd())
	cmd.AddCommand(newSettingsRmCmd())
	return cmd
}

func parseSettingID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, errors.Errorf("%q is not a setting id", arg)
	}
	return id, nil
}

func newSettingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List settings with masked values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession()
			if err != nil {
				return err
			}
			settings, err := c.ListSettings(cmd.Context())
			if err != nil {
				return err
			}
			title("SETTINGS")
			printSettings(settings)
			return nil
		},
	}
}

func newSettingsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <key> <value>",
		Short: "Add a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			setting, err := c.AddSetting(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			success("added %s (%s)", setting.KeyName, setting.ID)
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <setting-id> <value>",
		Short: "Change a setting value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSettingID(args[0])
			if err != nil {
				return err
			}
			c, err := requireSession()
			if err != nil {
				return err
			}
			setting, err := c.UpdateSetting(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			success("updated %s", setting.KeyName)
			return nil
		},
	}
}

func newSettingsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <setting-id>",
		Short: "Delete a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSettingID(args[0])
			if err != nil {
				return err
			}
			c, err := requireSession()
			if err != nil {
				return err
			}
			if err := c.DeleteSetting(cmd.Context(), id); err != nil {
				return err
			}
			success("deleted %s", id)
			return nil
		},
	}
}
