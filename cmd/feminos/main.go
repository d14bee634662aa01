// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command feminos runs a MINOS/Feminos DAQ card as an ordinary host
// process: a UDP command/DAQ channel and a TCP telnet console on top
// of a userspace network stack bound to a host network interface.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rest-for-physics/minos-core/service"
)

func main() {
	log.SetFlags(0)

	cfg := service.DefaultConfig()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	ip := net.ParseIP(cfg.IP)
	if ip == nil {
		log.Fatalf("invalid -ip %q", cfg.IP)
	}

	svc, err := service.New(cfg, ip)
	if err != nil {
		log.Fatalf("service.New: %v", err)
	}
	defer svc.Close()

	log.Printf("Fem(%02d) listening on %s:%d (udp), %s:%d (tcp)",
		cfg.CardID, cfg.IP, cfg.UDPPort, cfg.IP, cfg.TCPPort)

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	if err := svc.Run(stop); err != nil {
		log.Fatalf("service.Run: %v", err)
	}
}
