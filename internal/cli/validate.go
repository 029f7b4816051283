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

	"github.com/spf13/cobra"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/flow"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a flow document without sending anything",
		Args:  cobra.NoArgs,
		RunE:  validateFlows,
	}
}

func validateFlows(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	specs, err := readFlows(flowsPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if err := flow.Validate(specs, cfg.Pacing); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, spec := range specs {
		interval, err := cfg.Pacing.Interval(spec.PacketLen, float64(spec.TxRate))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "flow %d (id %d): %s -> %s, %d bytes every %s, model %s\n",
			i, spec.FlowId, spec.SourceAddr, spec.Destination(), spec.PacketLen, interval, spec.TrafficModel)
	}
	fmt.Fprintf(out, "%d flows OK\n", len(specs))
	return nil
}
