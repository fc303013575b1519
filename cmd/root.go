package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rosapi/rosapi/internal/options"
	"github.com/rosapi/rosapi/pkg/roslog"
	"github.com/rosapi/rosapi/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	mode    string
	opts    = options.New()
	rootCmd = &cobra.Command{
		Use:   "rosapi",
		Short: "rosapi, a RouterOS API client.",
		Long:  `rosapi talks the RouterOS binary API: run commands against a device and stream their replies, or serve a scriptable mock device for development.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "", "mode, debug or release")

	rootCmd.AddCommand(newExecCMD().CMD())
	rootCmd.AddCommand(newMockCMD().CMD())
}

func initConfig() {
	vp := viper.New()
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
		if err := vp.ReadInConfig(); err == nil {
			fmt.Println("Using config file:", vp.ConfigFileUsed())
		}
	}

	vp.SetEnvPrefix("ros")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	if strings.TrimSpace(mode) != "" {
		vp.Set("mode", mode)
	}
	opts.ConfigureWithViper(vp)
	vp.BindPFlags(rootCmd.Flags())
}

// configureLog points roslog at the configured sink. Commands with
// machine readable output keep the console clean with noStdout.
func configureLog(noStdout bool) {
	logOpts := roslog.NewOptions()
	logOpts.Level = opts.Logger.Level
	logOpts.LogDir = opts.Logger.Dir
	logOpts.LineNum = opts.Logger.LineNum
	logOpts.NoStdout = noStdout
	roslog.Configure(logOpts)
}

func Execute() {
	rootCmd.Version = version.String()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
