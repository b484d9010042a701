package w3gs

import "encoding/binary"

// PingFromHost is sent periodically by the relay to keep the client's
// connection alive (see GameRelay's 15-second ping cadence).
type PingFromHost struct {
	Payload uint32
}

// WithPayload builds a PingFromHost carrying the given payload value.
func WithPayload(payload uint32) PingFromHost {
	return PingFromHost{Payload: payload}
}

func (PingFromHost) TypeID() TypeID { return TypePingFromHost }

func (p PingFromHost) Encode() ([]byte, error) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], p.Payload)
	return buf[:], nil
}
