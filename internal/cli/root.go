// Copyright 2025 EURECOM
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
//
// Contributors:
//   Giulio CAROTA
//   Thomas DU
//   Adlen KSENTINI

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/flow"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/generator"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

var (
	configPath string
	flowsPath  string
	exitCode   bool
)

var rootCmd = &cobra.Command{
	Use:   "traffic-generator",
	Short: "UDP traffic generator",
	Long:  "Sends paced UDP datagrams for every flow of a JSON flow document, one sender per flow. Without a subcommand it behaves as run.",
	Args:  cobra.NoArgs,
	RunE:  runGenerator,
	// errors are printed once by main
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// ExitStatus is the process status for the error returned by Execute. Errors
// are only printed unless --exit-code was given.
func ExitStatus(err error) int {
	if err == nil || !exitCode {
		return 0
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the YAML configuration, defaults apply when empty")
	rootCmd.PersistentFlags().StringVarP(&flowsPath, "flows", "f", "-",
		"Flow document to read, - for stdin, empty for none")

	rootCmd.PersistentFlags().BoolVar(&exitCode, "exit-code", false,
		"Exit with status 1 when the run cannot start, instead of only printing the error")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newValidateCmd())
}

// readFlows decodes the flow document named by path. An empty path means no
// flows at all.
func readFlows(path string, stdin io.Reader) ([]models.FlowSpec, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return flow.DecodeFlows(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &flow.InputReadError{Err: err}
	}
	defer f.Close()
	return flow.DecodeFlows(f)
}

func loadConfig() (*generator.AppConfig, error) {
	cfg, err := generator.InitConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
