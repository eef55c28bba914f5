//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"log"
	"net"
	"time"
)

const (
	dialRetries = 30
	dialDelay   = time.Second
)

// Dial connects to the TCP address addr and wraps the connection into
// a Conn. The connect is retried while the peer's listener is still
// coming up.
func Dial(addr string) (*Conn, error) {
	for i := 0; ; i++ {
		nc, err := net.Dial("tcp", addr)
		if err == nil {
			return NewConn(nc), nil
		}
		if i+1 >= dialRetries {
			return nil, err
		}
		log.Printf("connect to %s failed, retrying in %s", addr, dialDelay)
		time.Sleep(dialDelay)
	}
}
