// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package service assembles the card's runtime: register bank, ASIC
// drivers, ring buffer pump, command interpreter, and the UDP/TCP
// transport that ties them to the network.
package service

import (
	"flag"
	"time"

	"github.com/rest-for-physics/minos-core/flowctl"
)

// Config holds everything needed to bring up one card instance
//.
type Config struct {
	Iface string // host network interface carrying the card's traffic
	IP    string // card's IPv4 address
	MTU   int
	CardID   int
	Version  int
	NumAsic  int
	NumChan  int
	NumRegs  int

	UDPPort int
	TCPPort int

	RingBufCapacity int

	FlowUnit         flowctl.Unit
	FlowPolicy       flowctl.Policy
	CredWaitTime     time.Duration
}

// DefaultConfig returns the parameters a Feminos card boots with absent
// any flag overrides.
func DefaultConfig() Config {
	return Config{
		Iface:           "eth0",
		IP:              "10.0.0.1",
		MTU:             1500,
		CardID:          0,
		Version:         1,
		NumAsic:         4,
		NumChan:         79,
		NumRegs:         16,
		UDPPort:         9810,
		TCPPort:         9811,
		RingBufCapacity: 64,
		FlowUnit:        flowctl.UnitBytes,
		FlowPolicy:      flowctl.PolicyIgnore,
		CredWaitTime:    200 * time.Millisecond,
	}
}

// RegisterFlags binds c's fields to the command line.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Iface, "iface", c.Iface, "host network interface to bind the card's UDP/TCP sockets to")
	fs.StringVar(&c.IP, "ip", c.IP, "card's IPv4 address")
	fs.IntVar(&c.MTU, "mtu", c.MTU, "Ethernet MTU")
	fs.IntVar(&c.CardID, "card-id", c.CardID, "card identity, 0..31")
	fs.IntVar(&c.NumAsic, "num-asic", c.NumAsic, "number of front-end ASICs on this card")
	fs.IntVar(&c.NumChan, "num-chan", c.NumChan, "channels per ASIC")
	fs.IntVar(&c.NumRegs, "num-regs", c.NumRegs, "FPGA register bank size")
	fs.IntVar(&c.UDPPort, "udp-port", c.UDPPort, "UDP port for the command/DAQ channel")
	fs.IntVar(&c.TCPPort, "tcp-port", c.TCPPort, "TCP port for the telnet console")
	fs.IntVar(&c.RingBufCapacity, "ring-bufs", c.RingBufCapacity, "capacity in bytes of each of the ring buffer pump's 128 buffers")
	fs.DurationVar(&c.CredWaitTime, "cred-wait-time", c.CredWaitTime, "flow-control credit timeout window")
}
