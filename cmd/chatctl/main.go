package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configName    = ".chatctl"
	defaultServer = "http://localhost:3000"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "chatctl",
		Short:         "Command line client for the chatdesk API",
		Version:       "1.0",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(configFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.chatctl.yaml)")
	rootCmd.PersistentFlags().String("server", defaultServer, "API base url")
	rootCmd.PersistentFlags().String("token", "", "Session token")
	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token")))

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newChatsCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newAdminCmd())
	rootCmd.AddCommand(newSettingsCmd())
	return rootCmd
}

// loadConfig reads ~/.chatctl.yaml (or the given file) and CHATCTL_* variables.
// A missing file is fine; login creates it.
func loadConfig(configFile string) error {
	viper.SetEnvPrefix("CHATCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("server", defaultServer)

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

// saveToken persists the session token next to the server it belongs to
func saveToken(token string) error {
	viper.Set("token", token)
	if path := viper.ConfigFileUsed(); path != "" {
		return viper.WriteConfigAs(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return viper.WriteConfigAs(filepath.Join(home, configName+".yaml"))
}
