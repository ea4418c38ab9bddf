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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turnstile-sh/turnstile/pkg/turnstile/exit"
	"github.com/turnstile-sh/turnstile/pkg/turnstile/queue"
)

var pruneForce bool

// pruneCmd represents the prune command
var pruneCmd = &cobra.Command{
	Use:   "prune TASK",
	Short: "Remove a task's coordination state",
	Long: `prune removes the shared directory for TASK. Without --force it refuses
while the recorded leader process is still alive.`,
	Run: runPrune,
}

// runPrune handles the flow of "turnstile prune"
func runPrune(cmd *cobra.Command, args []string) {
	if len(args) != 1 {
		exit.Usage("usage: turnstile prune TASK [--force]")
	}
	task := args[0]

	removed, err := queue.Purge(task, coordConfig(), pruneForce)
	if err != nil {
		exit.Error(exit.Failure, "unable to prune the task", err)
	}
	if !removed {
		fmt.Printf("No environment for task %q. Nothing to prune.\n", task)
		return
	}
	fmt.Printf("Removed the coordination state for task %q.\n", task)
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneForce, "force", false, "Remove the environment even if its leader is still alive")
	RootCmd.AddCommand(pruneCmd)
}
