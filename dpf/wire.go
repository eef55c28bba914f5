//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package dpf

import (
	"fmt"

	"github.com/markkurossi/obliv/p2p"
)

// maxLevels bounds the correction-word count of a key read from the
// wire; a 64-bit domain never needs more.
const maxLevels = 64

// Send writes the key in its binary wire format: root seed, root
// control bit, correction-word count, the correction words as
// {dSL, dSR, dTL, dTR}, and the output correction. Integers are
// big-endian; control bits are single bytes.
func (k *Key) Send(c *p2p.Conn) error {
	if err := c.SendUint64(k.S0); err != nil {
		return err
	}
	if err := c.SendByte(boolByte(k.T0)); err != nil {
		return err
	}
	if err := c.SendUint32(len(k.CWs)); err != nil {
		return err
	}
	for _, cw := range k.CWs {
		if err := c.SendUint64(cw.DSL); err != nil {
			return err
		}
		if err := c.SendUint64(cw.DSR); err != nil {
			return err
		}
		if err := c.SendByte(boolByte(cw.DTL)); err != nil {
			return err
		}
		if err := c.SendByte(boolByte(cw.DTR)); err != nil {
			return err
		}
	}
	return c.SendUint64(k.CWOut)
}

// Receive reads a key from the connection.
func Receive(c *p2p.Conn) (*Key, error) {
	s0, err := c.ReceiveUint64()
	if err != nil {
		return nil, err
	}
	t0, err := c.ReceiveByte()
	if err != nil {
		return nil, err
	}
	count, err := c.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	if count < 0 || count > maxLevels {
		return nil, fmt.Errorf("dpf: invalid correction word count %d",
			count)
	}
	key := &Key{
		S0:  s0,
		T0:  t0 != 0,
		CWs: make([]CW, count),
	}
	for i := 0; i < count; i++ {
		cw := &key.CWs[i]
		if cw.DSL, err = c.ReceiveUint64(); err != nil {
			return nil, err
		}
		if cw.DSR, err = c.ReceiveUint64(); err != nil {
			return nil, err
		}
		var b byte
		if b, err = c.ReceiveByte(); err != nil {
			return nil, err
		}
		cw.DTL = b != 0
		if b, err = c.ReceiveByte(); err != nil {
			return nil, err
		}
		cw.DTR = b != 0
	}
	if key.CWOut, err = c.ReceiveUint64(); err != nil {
		return nil, err
	}
	return key, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
