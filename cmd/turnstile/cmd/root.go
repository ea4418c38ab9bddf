/*
Copyright 2024 The Turnstile Authors All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	goflag "flag"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/turnstile-sh/turnstile/pkg/turnstile/constants"
	"github.com/turnstile-sh/turnstile/pkg/turnstile/exit"
	"github.com/turnstile-sh/turnstile/pkg/turnstile/queue"
)

const (
	baseDir       = "base-dir"
	pollInterval  = "poll-interval"
	settleDelay   = "settle-delay"
	masterTimeout = "timeout"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "turnstile",
	Short: "turnstile runs commands one at a time across processes",
	Long: `turnstile serializes commands that share a task name. Concurrent
invocations coordinate through a directory on a shared filesystem and run
approximately in the order they arrived, one at a time.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		exit.Usage("%v", err)
	}
}

// coordConfig assembles the engine configuration from flags and environment
// variables.
func coordConfig() queue.Config {
	return queue.Config{
		BaseDir:       viper.GetString(baseDir),
		PollInterval:  viper.GetDuration(pollInterval),
		SettleDelay:   viper.GetDuration(settleDelay),
		MasterTimeout: viper.GetDuration(masterTimeout),
	}
}

func init() {
	klog.InitFlags(nil)
	// stderr belongs to the wrapped command. Diagnostics go to files
	// unless --alsologtostderr asks otherwise; errors still hit stderr
	// through the default stderrthreshold.
	if err := goflag.Set("logtostderr", "false"); err != nil {
		klog.Warningf("unable to set logtostderr: %v", err)
	}
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)

	RootCmd.PersistentFlags().String(baseDir, "", "Directory holding per-task coordination state. Defaults to the system temporary directory.")

	viper.SetEnvPrefix(constants.EnvPrefix)
	// Replaces '-' in flags with '_' in env variables
	// e.g. base-dir => $TURNSTILE_BASE_DIR
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(RootCmd.PersistentFlags()); err != nil {
		exit.Error(exit.Software, "unable to bind flags", err)
	}
}
