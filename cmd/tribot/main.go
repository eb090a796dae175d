// Copyright 2022 The tribot Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/tribot-xmpp/tribot/pkg/tribot"
	"github.com/tribot-xmpp/tribot/pkg/version"
)

const (
	cliName        = "tribot"
	cliDescription = "An XMPP multi-user chat bot."
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          cliName,
	Short:        cliDescription,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "configuration file path")

	rootCmd.AddCommand(
		newRunCommand(),
		newCheckCommand(),
		newVersionCommand(),
	)
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connects the bot and serves until a stop signal is received",
		RunE: func(_ *cobra.Command, _ []string) error {
			return tribot.New(os.Stdout).Run(tribot.ConfigFile(configFile))
		},
	}
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validates configuration and plugins without connecting",
		RunE: func(_ *cobra.Command, _ []string) error {
			return tribot.New(os.Stdout).Check(tribot.ConfigFile(configFile))
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("tribot version:", version.Version)
			fmt.Println("revision:", version.Revision())
			fmt.Println("go version:", runtime.Version())
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
