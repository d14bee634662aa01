// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package service

import (
	"net"
	"runtime"
	"time"

	"github.com/rest-for-physics/minos-core/flowctl"
)

func newFlowController(cfg Config) *flowctl.Controller {
	return flowctl.NewController(cfg.FlowUnit, cfg.FlowPolicy, cfg.CredWaitTime)
}

// telnetHub mirrors service activity to every connected telnet client:
// accepting new connections is non-blocking so it never stalls the
// service loop, and Flush copies whatever was logged this iteration
// out to all of them, dropping clients that stop reading.
type telnetHub struct {
	listener net.Listener
	clients  []net.Conn
	pending  []byte
}

func newTelnetHub(l net.Listener) *telnetHub {
	return &telnetHub{listener: l}
}

func (h *telnetHub) acceptPending() {
	ln, ok := h.listener.(interface {
		SetDeadline(time.Time) error
	})
	if ok {
		ln.SetDeadline(time.Now())
	}
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			return
		}
		h.clients = append(h.clients, conn)
	}
}

// Log appends a line to the pending telnet output buffer.
func (h *telnetHub) Log(line string) {
	h.pending = append(h.pending, line...)
	h.pending = append(h.pending, '\n')
}

// Flush writes the pending buffer to every connected client, dropping
// any that error out, then clears it.
func (h *telnetHub) Flush() {
	if len(h.pending) == 0 {
		return
	}

	live := h.clients[:0]
	for _, c := range h.clients {
		if _, err := c.Write(h.pending); err == nil {
			live = append(live, c)
		} else {
			c.Close()
		}
	}
	h.clients = live
	h.pending = nil
}

func (h *telnetHub) close() {
	for _, c := range h.clients {
		c.Close()
	}
}

// Run executes the cooperative service loop. It runs until stop is
// closed or a fatal error is returned by a step.
func (s *Service) Run(stop <-chan struct{}) error {
	s.Ctx.Running = true
	buf := make([]byte, 2048)

	for {
		select {
		case <-stop:
			s.Ctx.Running = false
			return nil
		default:
		}

		runtime.Gosched()

		if err := s.Net.CmdConn.SetReadDeadline(time.Now().Add(10 * time.Millisecond)); err != nil {
			return err
		}
		n, addr, err := s.Net.CmdConn.ReadFrom(buf)
		if err == nil {
			reply := s.Ctx.Execute(string(buf[:n]), addr.String())
			if reply != nil {
				s.sendReply(reply, addr)
			}
		} else if !isTimeout(err) {
			s.telnet.Log("udp recv error: " + err.Error())
		}

		s.drainOneDescriptor()

		actions := s.Ctx.Flow.PeriodicCheck(time.Now())
		if actions.Log != "" {
			s.telnet.Log(actions.Log)
		}
		if actions.ResendLast {
			s.resendPending = true
		}

		s.telnet.acceptPending()
		s.telnet.Flush()
	}
}

// sendReply stages reply in a software buffer pool block rather than
// transmitting the interpreter's own slice directly. The block is
// allocated with auto-return set and released as soon as the
// synchronous write completes, standing in for the network layer's
// transmit-complete callback.
func (s *Service) sendReply(reply []byte, addr net.Addr) {
	h, block, err := s.Pool.Get(len(reply), true)
	if err != nil {
		s.telnet.Log("reply pool exhausted: " + err.Error())
		return
	}
	defer s.Pool.Put(h)

	copy(block, reply)
	if _, err := s.Net.CmdConn.WriteTo(block, addr); err != nil {
		s.telnet.Log("udp send error: " + err.Error())
	}
}

// drainOneDescriptor services one filled ring-buffer descriptor per
// iteration: route its contents via Context.Drain, forwarding to the
// DAQ socket when the active sink is ServeDAQ and credit allows it, then
// post it back to the pump's free list.
// Under the re-send loss policy a pending resend takes the slot instead
// of reaping a new buffer.
func (s *Service) drainOneDescriptor() {
	if s.Ctx.Ring == nil {
		return
	}

	if s.resendPending {
		s.resendPending = false
		s.resendLastDaq()
		return
	}

	id, ok := s.Ctx.Ring.GetFilled()
	if !ok {
		return
	}
	defer s.Ctx.Ring.PostFree(s.Ctx.Ring.Addr(id))

	buf, err := s.Ctx.Ring.FrameFilled(id, s.Ctx.Version, s.Ctx.CardID)
	if err != nil {
		s.telnet.Log("frame error: " + err.Error())
		return
	}
	forward, err := s.Ctx.Drain(buf)
	if err != nil {
		s.telnet.Log("drain error: " + err.Error())
		return
	}
	if forward == nil || s.Ctx.DaqClient == "" {
		return
	}
	if !s.Ctx.Flow.CanSend() {
		return
	}

	daqAddr, err := net.ResolveUDPAddr("udp", s.Ctx.DaqClient)
	if err != nil {
		s.telnet.Log("resolve DAQ client: " + err.Error())
		return
	}

	// Every data frame sent to the DAQ socket is preceded by the 2
	// reserved bytes carrying nxt_rep_ix, ORed with 0x0100 on the
	// first reply of a row.
	header := s.Ctx.Flow.ReplyHeader()
	datagram := make([]byte, 2+len(forward))
	datagram[0] = byte(header)
	datagram[1] = byte(header >> 8)
	copy(datagram[2:], forward)

	if _, err := s.Net.CmdConn.WriteTo(datagram, daqAddr); err != nil {
		s.telnet.Log("daq send error: " + err.Error())
		return
	}
	s.lastDaqFrame = append(s.lastDaqFrame[:0], forward...)
	s.Ctx.Flow.Spend(len(forward))
	s.Ctx.Flow.MarkSent(time.Now())
}

// resendLastDaq retransmits the most recent data frame under the
// re-send loss policy, consuming the credit the policy re-granted. The
// frame keeps its original payload but is stamped with a fresh reply
// index.
func (s *Service) resendLastDaq() {
	if len(s.lastDaqFrame) == 0 || s.Ctx.DaqClient == "" || !s.Ctx.Flow.CanSend() {
		return
	}

	daqAddr, err := net.ResolveUDPAddr("udp", s.Ctx.DaqClient)
	if err != nil {
		s.telnet.Log("resolve DAQ client: " + err.Error())
		return
	}

	header := s.Ctx.Flow.ReplyHeader()
	datagram := make([]byte, 2+len(s.lastDaqFrame))
	datagram[0] = byte(header)
	datagram[1] = byte(header >> 8)
	copy(datagram[2:], s.lastDaqFrame)

	if _, err := s.Net.CmdConn.WriteTo(datagram, daqAddr); err != nil {
		s.telnet.Log("daq resend error: " + err.Error())
		return
	}
	s.Ctx.Flow.Spend(len(s.lastDaqFrame))
	s.Ctx.Flow.MarkSent(time.Now())
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
