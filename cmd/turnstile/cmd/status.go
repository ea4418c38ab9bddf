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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/turnstile-sh/turnstile/pkg/turnstile/exit"
	"github.com/turnstile-sh/turnstile/pkg/turnstile/process"
	"github.com/turnstile-sh/turnstile/pkg/turnstile/queue"
)

var statusOutput string

// participantRow is one rendered line of status output.
type participantRow struct {
	Pid        int       `json:"pid"`
	State      string    `json:"state"`
	Role       string    `json:"role"`
	Alive      bool      `json:"alive"`
	Executable string    `json:"executable"`
	Since      time.Time `json:"since"`
}

var statusCmd = &cobra.Command{
	Use:   "status TASK",
	Short: "Show who is queued for a task",
	Long:  "Shows the participants queued for TASK, their states and whether their processes are still alive.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			exit.Usage("usage: turnstile status TASK")
		}
		task := args[0]
		switch strings.ToLower(statusOutput) {
		case "json":
			printStatusJSON(task)
		case "table":
			printStatusTable(task)
		default:
			exit.Usage("invalid output format: %s. Valid values: 'table', 'json'", statusOutput)
		}
	},
}

func fetchStatus(task string) *queue.Snapshot {
	snap, err := queue.Inspect(task, coordConfig())
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			exit.Message(exit.NoInput, "No environment for task %q. Nothing is coordinating.", task)
		}
		exit.Error(exit.IO, "unable to inspect the task", err)
	}
	return snap
}

// statusRows probes every recorded participant. The probes touch the
// process table, so they run concurrently.
func statusRows(snap *queue.Snapshot) []participantRow {
	rows := make([]participantRow, len(snap.Records))
	var g errgroup.Group
	for i, rec := range snap.Records {
		i, rec := i, rec
		g.Go(func() error {
			alive, err := process.Alive(rec.Pid)
			if err != nil {
				klog.Warningf("probing pid %d: %v", rec.Pid, err)
			}
			executable := "unknown"
			if proc, err := ps.FindProcess(rec.Pid); err == nil && proc != nil {
				executable = proc.Executable()
			}
			role := "participant"
			if rec.Leader {
				role = "leader"
			}
			rows[i] = participantRow{
				Pid:        rec.Pid,
				State:      string(rec.State),
				Role:       role,
				Alive:      alive,
				Executable: executable,
				Since:      rec.ModTime,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		klog.Errorf("status probe failed: %v", err)
	}
	return rows
}

func printStatusTable(task string) {
	snap := fetchStatus(task)
	rows := statusRows(snap)
	renderStatusTable(statusToTableData(rows))
	if snap.MasterPid >= 0 {
		fmt.Printf("leader pid %d, last heartbeat %s ago\n", snap.MasterPid, time.Since(snap.Heartbeat).Round(time.Second))
	}
}

func renderStatusTable(rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Pid", "State", "Role", "Alive", "Since", "Executable"})
	table.SetAutoFormatHeaders(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: true, Right: true, Bottom: true})
	table.SetCenterSeparator("|")
	table.AppendBulk(rows)
	table.Render()
}

func statusToTableData(rows []participantRow) [][]string {
	var data [][]string
	for _, r := range rows {
		alive := "no"
		if r.Alive {
			alive = "yes"
		}
		since := time.Since(r.Since).Round(time.Second).String() + " ago"
		data = append(data, []string{strconv.Itoa(r.Pid), r.State, r.Role, alive, since, r.Executable})
	}
	return data
}

func printStatusJSON(task string) {
	snap := fetchStatus(task)
	var body = map[string]interface{}{
		"task":         snap.Task,
		"dir":          snap.Dir,
		"masterPid":    snap.MasterPid,
		"heartbeat":    snap.Heartbeat,
		"participants": statusRows(snap),
	}
	jsonString, _ := json.Marshal(body)
	fmt.Println(string(jsonString))
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "The output format. One of 'json', 'table'")
	RootCmd.AddCommand(statusCmd)
}
