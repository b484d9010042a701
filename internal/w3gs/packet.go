// Package w3gs implements the subset of the Warcraft III LAN wire protocol
// that the relay needs to inspect. It never parses a payload it doesn't
// have to: packets the relay only forwards stay as opaque bodies.
package w3gs

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TypeID identifies the kind of a Packet. The relay only decodes the
// handful of types it acts on (see Component Design §4.4); everything
// else passes through as an opaque body.
type TypeID uint8

// Known packet types. Values are internal to this relay, not the byte-exact
// W3GS wire codes — the wire codec is an external collaborator (spec §6).
const (
	TypePingFromHost      TypeID = 0x01
	TypePongToHost        TypeID = 0x02
	TypeChatFromHost      TypeID = 0x0F
	TypeChatToHost        TypeID = 0x28
	TypeOutgoingAction    TypeID = 0x0C
	TypeOutgoingKeepAlive TypeID = 0x1C
	TypeDropReq           TypeID = 0x27
	TypeLeaveReq          TypeID = 0x21
	TypeLeaveAck          TypeID = 0x22
)

// header is the frame prefix: a magic byte, the type ID, and a little-endian
// total-length field (header included), matching the public W3GS framing.
const (
	magicByte   = 0xF7
	headerSize  = 4
	maxBodySize = 0xffff
)

// Packet is an opaque, length-prefixed frame. The relay decodes a payload
// only when Component Design calls for it; otherwise Body is forwarded
// unexamined.
type Packet struct {
	TypeID TypeID
	Body   []byte
}

// Encodable is implemented by payload types that know how to serialize
// themselves into a Packet body.
type Encodable interface {
	TypeID() TypeID
	Encode() ([]byte, error)
}

// Simple encodes e into a Packet, the Go analogue of the original's
// `Packet::simple`.
func Simple(e Encodable) (Packet, error) {
	body, err := e.Encode()
	if err != nil {
		return Packet{}, fmt.Errorf("encode %T: %w", e, err)
	}
	return Packet{TypeID: e.TypeID(), Body: body}, nil
}

// ReadFrom reads exactly one frame from r.
func ReadFrom(r io.Reader) (Packet, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Packet{}, err
	}
	if hdr[0] != magicByte {
		return Packet{}, fmt.Errorf("w3gs: bad frame magic 0x%02x", hdr[0])
	}
	length := binary.LittleEndian.Uint16(hdr[2:4])
	if int(length) < headerSize || int(length) > maxBodySize {
		return Packet{}, fmt.Errorf("w3gs: invalid frame length %d", length)
	}
	body := make([]byte, int(length)-headerSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return Packet{}, err
	}
	return Packet{TypeID: TypeID(hdr[1]), Body: body}, nil
}

// WriteTo writes p as one frame to w.
func WriteTo(w io.Writer, p Packet) error {
	total := headerSize + len(p.Body)
	if total > maxBodySize {
		return fmt.Errorf("w3gs: frame too large (%d bytes)", total)
	}
	hdr := [headerSize]byte{magicByte, byte(p.TypeID), 0, 0}
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(total))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(p.Body)
	return err
}
