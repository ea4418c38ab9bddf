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

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/turnstile-sh/turnstile/pkg/turnstile/exit"
	"github.com/turnstile-sh/turnstile/pkg/version"
)

var (
	versionOutput string
	shortVersion  bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of turnstile",
	Long:  `Print the version of turnstile.`,
	Run: func(command *cobra.Command, args []string) {
		turnstileVersion := version.GetVersion()
		gitCommitID := version.GetGitCommitID()
		data := map[string]string{
			"turnstileVersion": turnstileVersion,
			"commit":           gitCommitID,
		}
		switch versionOutput {
		case "":
			fmt.Printf("turnstile version: %v\n", turnstileVersion)
			if !shortVersion && gitCommitID != "" {
				fmt.Printf("commit: %v\n", gitCommitID)
			}
		case "json":
			json, err := json.Marshal(data)
			if err != nil {
				exit.Error(exit.Software, "version json failure", err)
			}
			fmt.Println(string(json))
		case "yaml":
			yaml, err := yaml.Marshal(data)
			if err != nil {
				exit.Error(exit.Software, "version yaml failure", err)
			}
			fmt.Println(string(yaml))
		default:
			exit.Usage("error: --output must be 'yaml' or 'json'")
		}
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "", "One of 'yaml' or 'json'.")
	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "Print just the version number.")
	RootCmd.AddCommand(versionCmd)
}
