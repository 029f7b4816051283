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
	"fmt"
	"log"
	"net"
	"net/netip"
	"strconv"
	"sync"

	"golang.org/x/net/ipv4"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

// Context is the live transmission handle of one flow. It owns its socket
// and payload exclusively.
type Context struct {
	Index int
	Spec  models.FlowSpec

	conn      *net.UDPConn
	dest      *net.UDPAddr
	payload   []byte
	tosConn   *ipv4.Conn
	closeOnce sync.Once
	closeErr  error
}

// Build binds a datagram socket to (source_addr, 0), resolves the
// destination and allocates a zero-filled payload of packet_len bytes.
func Build(index int, spec models.FlowSpec) (*Context, error) {
	source := netip.AddrPortFrom(spec.SourceAddr, 0)
	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(source))
	if err != nil {
		return nil, &BindError{Index: index, Source: source, Err: err}
	}

	fc := &Context{
		Index:   index,
		Spec:    spec,
		conn:    conn,
		dest:    net.UDPAddrFromAddrPort(spec.Destination()),
		payload: make([]byte, spec.PacketLen),
	}
	log.Printf("[%s] bound %s -> %s, payload %d bytes", fc.Name(), fc.LocalAddr(), fc.Destination(), len(fc.payload))
	return fc, nil
}

// Id is the flow id as used in metric labels
func (fc *Context) Id() string {
	return strconv.FormatUint(fc.Spec.FlowId, 10)
}

// Name is the log prefix of the flow
func (fc *Context) Name() string {
	return fmt.Sprintf("flow-%d", fc.Spec.FlowId)
}

// LocalAddr returns the bound address, including the ephemeral port
func (fc *Context) LocalAddr() netip.AddrPort {
	if addr, ok := fc.conn.LocalAddr().(*net.UDPAddr); ok {
		ap := addr.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	return netip.AddrPort{}
}

func (fc *Context) Destination() netip.AddrPort {
	return fc.Spec.Destination()
}

func (fc *Context) Payload() []byte {
	return fc.payload
}

// Close releases the socket, it is safe to call more than once
func (fc *Context) Close() error {
	fc.closeOnce.Do(func() {
		fc.closeErr = fc.conn.Close()
	})
	return fc.closeErr
}

func (fc *Context) send() error {
	_, err := fc.conn.WriteToUDP(fc.payload, fc.dest)
	return err
}

func (fc *Context) setTOS(tos int) error {
	if fc.tosConn == nil {
		fc.tosConn = ipv4.NewConn(fc.conn)
	}
	return fc.tosConn.SetTOS(tos)
}
