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

import (
	"errors"
	"fmt"
	"net/netip"
)

var (
	// ErrZeroRate is reported for a rate that cannot be turned into a pacing interval
	ErrZeroRate = errors.New("transmission rate must be positive")

	// ErrRateTooLow is reported for a positive rate whose interval overflows a time.Duration
	ErrRateTooLow = errors.New("transmission rate too low to pace")

	errMissingField = errors.New("missing field")
	errNullField    = errors.New("field must not be null")
)

// InputReadError means the flow document could not be read at all
type InputReadError struct {
	Err error
}

func (e *InputReadError) Error() string {
	return fmt.Sprintf("could not read flow parameters: %v", e.Err)
}

func (e *InputReadError) Unwrap() error {
	return e.Err
}

// SchemaError reports a flow document that does not have the expected shape.
// Index is -1 when the error concerns the document itself.
type SchemaError struct {
	Index int
	Field string
	Err   error
}

func (e *SchemaError) Error() string {
	switch {
	case e.Index < 0 && e.Field == "":
		return fmt.Sprintf("invalid flow document: %v", e.Err)
	case e.Index < 0:
		return fmt.Sprintf("invalid flow document: %s: %v", e.Field, e.Err)
	case e.Field == "":
		return fmt.Sprintf("flow %d: %v", e.Index, e.Err)
	default:
		return fmt.Sprintf("flow %d: field %s: %v", e.Index, e.Field, e.Err)
	}
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ValidationError reports a well-typed flow whose values cannot be paced
type ValidationError struct {
	Index int
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("flow %d: invalid %s: %v", e.Index, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BindError reports a flow whose socket could not be bound to its source address
type BindError struct {
	Index  int
	Source netip.AddrPort
	Err    error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("flow %d: could not bind %s: %v", e.Index, e.Source, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// SendError is a failed datagram send. It never stops a pacing loop, it is
// counted and carried by the next flow report.
type SendError struct {
	FlowId uint64
	Dest   netip.AddrPort
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("flow %d: send to %s failed: %v", e.FlowId, e.Dest, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
