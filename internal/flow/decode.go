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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/netip"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

// DecodeFlows reads a whole flow document from r and decodes it.
// See ParseFlows for the accepted shapes.
func DecodeFlows(r io.Reader) ([]models.FlowSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &InputReadError{Err: err}
	}
	return ParseFlows(data)
}

// ParseFlows decodes either {"flow_parameters": [...]} or a bare list of flow
// records, preserving their order. It only checks types: every field is
// required except transmit_rates and flow_id, addresses must be IPv4.
func ParseFlows(data []byte) ([]models.FlowSpec, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &SchemaError{Index: -1, Err: errors.New("empty document")}
	}

	var records []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, &SchemaError{Index: -1, Err: err}
		}
	case '{':
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &SchemaError{Index: -1, Err: err}
		}
		raw, ok := doc["flow_parameters"]
		if !ok {
			return nil, &SchemaError{Index: -1, Field: "flow_parameters", Err: errMissingField}
		}
		if isNull(raw) {
			return nil, &SchemaError{Index: -1, Field: "flow_parameters", Err: errNullField}
		}
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, &SchemaError{Index: -1, Field: "flow_parameters", Err: err}
		}
	default:
		return nil, &SchemaError{Index: -1, Err: fmt.Errorf("expected an object or a list, got %q", data[0])}
	}

	specs := make([]models.FlowSpec, 0, len(records))
	for i, raw := range records {
		spec, err := decodeRecord(i, raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

type recordDecoder struct {
	index  int
	fields map[string]json.RawMessage
	err    error
}

// decode unmarshals field name into target, leaving target untouched when
// an optional field is absent or null.
func (d *recordDecoder) decode(name string, required bool, target any) {
	if d.err != nil {
		return
	}
	raw, ok := d.fields[name]
	if !ok || isNull(raw) {
		if required {
			cause := errMissingField
			if ok {
				cause = errNullField
			}
			d.err = &SchemaError{Index: d.index, Field: name, Err: cause}
		}
		return
	}
	if err := json.Unmarshal(raw, target); err != nil {
		d.err = &SchemaError{Index: d.index, Field: name, Err: err}
	}
}

func (d *recordDecoder) ipv4(name string, target *netip.Addr) {
	var s string
	d.decode(name, true, &s)
	if d.err != nil {
		return
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		d.err = &SchemaError{Index: d.index, Field: name, Err: err}
		return
	}
	if !addr.Is4() {
		d.err = &SchemaError{Index: d.index, Field: name, Err: fmt.Errorf("%s is not an IPv4 address", s)}
		return
	}
	*target = addr
}

func (d *recordDecoder) trafficModel(name string, target *models.TrafficModel) {
	var s string
	d.decode(name, true, &s)
	if d.err != nil {
		return
	}
	model, err := models.ParseTrafficModel(s)
	if err != nil {
		d.err = &SchemaError{Index: d.index, Field: name, Err: err}
		return
	}
	*target = model
}

func decodeRecord(index int, raw json.RawMessage) (models.FlowSpec, error) {
	spec := models.FlowSpec{FlowId: uint64(index)}

	d := &recordDecoder{index: index}
	if err := json.Unmarshal(raw, &d.fields); err != nil {
		return spec, &SchemaError{Index: index, Err: err}
	}
	if d.fields == nil {
		return spec, &SchemaError{Index: index, Err: errors.New("flow record must be an object")}
	}

	var packetLen uint32
	d.decode("dest_port", true, &spec.DestPort)
	d.ipv4("dest_addr", &spec.DestAddr)
	d.ipv4("source_addr", &spec.SourceAddr)
	d.decode("prob_mat", true, &spec.ProbMat)
	d.decode("tx_rate", true, &spec.TxRate)
	d.decode("variance", true, &spec.Variance)
	d.trafficModel("traffic_model", &spec.TrafficModel)
	d.decode("packet_len", true, &packetLen)
	d.decode("src_host", true, &spec.SrcHost)
	d.decode("time_slice", true, &spec.TimeSlice)
	d.decode("tag_value", true, &spec.TagValue)
	d.decode("transmit_rates", false, &spec.TransmitRates)
	d.decode("flow_id", false, &spec.FlowId)
	if d.err != nil {
		return spec, d.err
	}

	spec.PacketLen = int(packetLen)
	return spec, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
