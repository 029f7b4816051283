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
	"github.com/spf13/cobra"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/generator"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Bind every flow and send until interrupted",
		Long: `Reads the flow document, binds one UDP socket per flow and paces datagrams
until SIGINT or SIGTERM. With the control api enabled, runs can also be
configured, started and stopped over HTTP.`,
		Args: cobra.NoArgs,
		RunE: runGenerator,
	}
}

func runGenerator(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	specs, err := readFlows(flowsPath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	app := generator.NewTrafficGeneratorApp(cfg)
	return app.Run(cmd.Context(), specs)
}
