// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package service

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/adapters/gonet"
	"gvisor.dev/gvisor/pkg/tcpip/header"
	"gvisor.dev/gvisor/pkg/tcpip/link/fdbased"
	"gvisor.dev/gvisor/pkg/tcpip/network/arp"
	"gvisor.dev/gvisor/pkg/tcpip/network/ipv4"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
	"gvisor.dev/gvisor/pkg/tcpip/transport/tcp"
	"gvisor.dev/gvisor/pkg/tcpip/transport/udp"
)

const nicID tcpip.NICID = 1

// Net is the card's gvisor-backed network stack: a userspace TCP/IP
// stack bound to a raw AF_PACKET socket on the host interface named by
// Config.Iface, standing in for the FPGA's Ethernet MAC.
type Net struct {
	stack *stack.Stack
	addr  tcpip.Address

	CmdConn *gonet.UDPConn
	Telnet  net.Listener
}

// openRawSocket binds an AF_PACKET/SOCK_RAW socket to the named host
// interface, giving fdbased.New a file descriptor to drive.
func openRawSocket(ifaceName string) (fd int, mtu int, linkAddr tcpip.LinkAddress, err error) {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return -1, 0, "", fmt.Errorf("resolve interface %q: %w", ifaceName, err)
	}

	fd, err = unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return -1, 0, "", fmt.Errorf("open raw socket: %w", err)
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, 0, "", fmt.Errorf("bind raw socket to %q: %w", ifaceName, err)
	}

	return fd, ifi.MTU, tcpip.LinkAddress(ifi.HardwareAddr), nil
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

// NewNet brings up the network stack for cfg: a raw-socket link, IPv4 +
// ARP, and TCP/UDP transports, then binds the UDP
// command/DAQ channel and the TCP telnet listener.
func NewNet(cfg Config, ip net.IP) (*Net, error) {
	fd, mtu, linkAddr, err := openRawSocket(cfg.Iface)
	if err != nil {
		return nil, err
	}

	linkEP, err := fdbased.New(&fdbased.Options{
		FDs:            []int{fd},
		MTU:            uint32(mtu),
		EthernetHeader: true,
		Address:        linkAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("create link endpoint: %w", err)
	}

	s := stack.New(stack.Options{
		NetworkProtocols:   []stack.NetworkProtocolFactory{ipv4.NewProtocol, arp.NewProtocol},
		TransportProtocols: []stack.TransportProtocolFactory{tcp.NewProtocol, udp.NewProtocol},
	})

	if err := s.CreateNIC(nicID, linkEP); err != nil {
		return nil, fmt.Errorf("create NIC: %s", err)
	}

	addr := tcpip.AddrFromSlice(ip.To4())
	protoAddr := tcpip.ProtocolAddress{
		Protocol:          ipv4.ProtocolNumber,
		AddressWithPrefix: addr.WithPrefix(),
	}
	if err := s.AddProtocolAddress(nicID, protoAddr, stack.AddressProperties{}); err != nil {
		return nil, fmt.Errorf("add address: %s", err)
	}

	s.SetRouteTable([]tcpip.Route{{
		Destination: header.IPv4EmptySubnet,
		NIC:         nicID,
	}})

	n := &Net{stack: s, addr: addr}

	cmdConn, err := gonet.DialUDP(s, &tcpip.FullAddress{Addr: addr, Port: uint16(cfg.UDPPort), NIC: nicID}, nil, ipv4.ProtocolNumber)
	if err != nil {
		return nil, fmt.Errorf("bind UDP command channel: %w", err)
	}
	n.CmdConn = cmdConn

	telnetListener, err := gonet.ListenTCP(s, tcpip.FullAddress{Addr: addr, Port: uint16(cfg.TCPPort), NIC: nicID}, ipv4.ProtocolNumber)
	if err != nil {
		return nil, fmt.Errorf("bind TCP telnet listener: %w", err)
	}
	n.Telnet = telnetListener

	return n, nil
}

// Close tears down the listeners and the underlying stack.
func (n *Net) Close() {
	if n.CmdConn != nil {
		n.CmdConn.Close()
	}
	if n.Telnet != nil {
		n.Telnet.Close()
	}
	n.stack.Close()
}
