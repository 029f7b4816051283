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

package models

// FlowState is the lifecycle state of a single flow, used as a metrics label
type FlowState string

const (
	FlowBound   FlowState = "BOUND"
	FlowRunning FlowState = "RUNNING"
	FlowStopped FlowState = "STOPPED"
	FlowFailed  FlowState = "FAILED"
)

// StartupPolicy decides what happens when some flows cannot be bound
type StartupPolicy string

const (
	// AllOrNothing aborts the whole run on the first bind failure
	AllOrNothing StartupPolicy = "all-or-nothing"
	// BestEffort starts every flow that could be bound
	BestEffort StartupPolicy = "best-effort"
)

func (p StartupPolicy) Valid() bool {
	return p == AllOrNothing || p == BestEffort
}
