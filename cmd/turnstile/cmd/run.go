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
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/turnstile-sh/turnstile/pkg/turnstile/constants"
	"github.com/turnstile-sh/turnstile/pkg/turnstile/exit"
	"github.com/turnstile-sh/turnstile/pkg/turnstile/queue"
)

var commandString string

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run TASK -- COMMAND [ARGS...]",
	Short: "Run a command once every earlier invocation of TASK has finished",
	Long: `run joins the queue for TASK, waits until every invocation that arrived
before it has finished, runs COMMAND, and passes its exit code through
unchanged. The command can also be given as a single shell-quoted string
with --command.`,
	Run: runRun,
}

func runRun(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		exit.Usage("usage: turnstile run TASK [--command STRING | -- COMMAND [ARGS...]]")
	}
	task := args[0]
	command, err := splitCommand(args[1:], commandString)
	if err != nil {
		exit.Error(exit.BadUsage, "invalid command", err)
	}

	p, err := queue.Join(task, coordConfig())
	if err != nil {
		exit.Error(exit.IO, "unable to join the task queue", err)
	}

	// Our record must be withdrawn on Ctrl-C too, whether we are still
	// queued or the command is already running. Before the command starts
	// a signal means abandon the queue; afterwards it is forwarded.
	var (
		childMu sync.Mutex
		child   *os.Process
	)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigs {
			childMu.Lock()
			proc := child
			childMu.Unlock()
			if proc == nil {
				klog.Infof("%v while queued, withdrawing pid %d", sig, os.Getpid())
				cleanup(p)
				exit.Message(exit.Interrupted, "interrupted while waiting for our turn")
			}
			klog.Infof("forwarding %v to pid %d", sig, proc.Pid)
			if err := proc.Signal(sig); err != nil {
				klog.Warningf("unable to forward %v: %v", sig, err)
			}
		}
	}()

	if err := p.Await(); err != nil {
		cleanup(p)
		if errors.Cause(err) == queue.ErrMasterLost {
			exit.Error(exit.Unavailable, "gave up waiting", err)
		}
		exit.Error(exit.Software, "waiting for our turn", err)
	}
	if err := p.MarkActive(); err != nil {
		cleanup(p)
		exit.Error(exit.Software, "claiming our turn", err)
	}

	klog.Infof("running %s", shellquote.Join(command...))
	c := exec.Command(command[0], command[1:]...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	childMu.Lock()
	err = c.Start()
	if err == nil {
		child = c.Process
	}
	childMu.Unlock()
	if err != nil {
		cleanup(p)
		exit.Error(exit.Software, fmt.Sprintf("starting %s", command[0]), err)
	}

	err = c.Wait()
	signal.Stop(sigs)
	cleanup(p)
	if err != nil {
		rc := 1
		if exitError, ok := err.(*exec.ExitError); ok {
			waitStatus := exitError.Sys().(syscall.WaitStatus)
			rc = waitStatus.ExitStatus()
		} else {
			fmt.Fprintf(os.Stderr, "Error running %s: %v\n", command[0], err)
		}
		klog.Flush()
		os.Exit(rc)
	}
}

// splitCommand resolves the payload from the arguments after TASK or from
// the --command string. Exactly one of the two must be used.
func splitCommand(rest []string, quoted string) ([]string, error) {
	if quoted == "" {
		if len(rest) == 0 {
			return nil, errors.New("no command given; pass one after -- or with --command")
		}
		return rest, nil
	}
	if len(rest) > 0 {
		return nil, errors.New("give the command either after -- or with --command, not both")
	}
	command, err := shellquote.Split(quoted)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %q", quoted)
	}
	if len(command) == 0 {
		return nil, errors.New("--command is empty")
	}
	return command, nil
}

func cleanup(p *queue.Participant) {
	if err := p.Cleanup(); err != nil {
		klog.Errorf("cleanup failed: %v", err)
	}
}

func init() {
	runCmd.Flags().StringVarP(&commandString, "command", "c", "", "The command to run, as one shell-quoted string")
	runCmd.Flags().Duration(pollInterval, constants.DefaultPollInterval, "How often to check whether it is our turn")
	runCmd.Flags().Duration(settleDelay, constants.DefaultSettleDelay, "How long a fresh environment waits for concurrent launches to register")
	runCmd.Flags().Duration(masterTimeout, constants.DefaultMasterTimeout, "How much leader silence to tolerate before giving up")
	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		exit.Error(exit.Software, "unable to bind flags", err)
	}
	RootCmd.AddCommand(runCmd)
}
