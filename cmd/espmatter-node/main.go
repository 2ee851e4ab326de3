// espmatter-node brings up a Matter node's data model and cluster servers
// from a YAML build configuration, using simulated network drivers.
//
// Usage:
//
//	espmatter-node [flags]
//
// Every flag can also be set through the environment with the ESPMATTER_
// prefix, for example ESPMATTER_STORAGE=/var/lib/espmatter/node.cbor.
//
// Example:
//
//	espmatter-node --build-config node.yaml --wifi-ssid home --wifi-passphrase "correct horse" --commission
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "espmatter-node",
	Short: "Runs the endpoint and cluster lifecycle of a Matter node",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readOptions()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, opts, cmd.OutOrStdout())
	},
	SilenceUsage: true,
}

func init() {
	configFlags := pflag.NewFlagSet("", pflag.ContinueOnError)
	configFlags.String("build-config", "", "YAML build configuration; built-in defaults when empty")
	configFlags.String("storage", "", "file persisting non-volatile attributes; in-memory when empty")
	configFlags.String("log-level", "info", "log level: disabled, error, warn, info, debug or trace")
	configFlags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
	configFlags.String("wifi-ssid", "espmatter", "SSID of the simulated access point")
	configFlags.String("wifi-passphrase", "espmatter-sim", "passphrase of the simulated access point")
	configFlags.Bool("commission", false, "add and connect the simulated network after bring-up")
	configFlags.Bool("once", false, "print the node state and exit instead of waiting for a signal")
	rootCmd.Flags().AddFlagSet(configFlags)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetEnvPrefix("espmatter")
	viper.AutomaticEnv()

	_ = viper.BindPFlags(configFlags)
}

func readOptions() (options, error) {
	opts := options{
		buildConfig:    viper.GetString("build-config"),
		storagePath:    viper.GetString("storage"),
		logLevel:       viper.GetString("log-level"),
		metricsAddr:    viper.GetString("metrics-addr"),
		wifiSSID:       viper.GetString("wifi-ssid"),
		wifiPassphrase: viper.GetString("wifi-passphrase"),
		commission:     viper.GetBool("commission"),
		once:           viper.GetBool("once"),
	}
	if _, err := parseLogLevel(opts.logLevel); err != nil {
		return options{}, err
	}
	return opts, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
