package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexlup06-authgate/signin-go/settings"
)

var (
	cfgFile string
	verbose int
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "signin-gate",
	Short: "Gate HTML content behind a Cognito sign-in",
	Long: `signin-gate serves HTML pages and hides everything after a
[sign_in_require_auth] marker until the visitor signs in against an
Amazon Cognito user pool. Settings come from a config file, SIGNIN_*
environment variables and flags.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called by main.main().
func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./signin.yaml if present)")
	RootCmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", 0, "log verbosity; 1 logs every gate decision")
	RootCmd.PersistentFlags().String("base-dir", ".", "directory relative credentials paths are resolved against")
	if err := viper.BindPFlags(RootCmd.PersistentFlags()); err != nil {
		log.Fatalf("%v", err)
	}
}

// initConfig reads in the config file and ENV variables if set.
func initConfig() {
	settings.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("Failed reading config file: %v: %v", viper.ConfigFileUsed(), err)
		}
		return
	}

	viper.SetConfigName("signin")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() logr.Logger {
	stdr.SetVerbosity(verbose)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

func newSettings(log logr.Logger) *settings.Provider {
	return settings.New(viper.GetViper(), viper.GetString("base-dir"), log.WithName("settings"))
}
