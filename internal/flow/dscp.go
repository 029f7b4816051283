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

package flow

// pathIndex picks path i with probability probMat[i], rnd being uniform in [0, 1)
func pathIndex(probMat []float64, rnd float64) int {
	accumulator := 0.0
	for i, proportion := range probMat {
		accumulator += proportion
		if rnd <= accumulator {
			return i
		}
	}
	return len(probMat) - 1
}

// dscpTOS places a DSCP code point in the upper six bits of the TOS byte
func dscpTOS(tag uint8) int {
	return int(tag) << 2
}
