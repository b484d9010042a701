package w3gs

import (
	"encoding/binary"
	"fmt"
)

// LeaveReq is sent by the client to request leaving the game, and echoed
// towards the node unchanged (relay just records the reason).
type LeaveReq struct {
	Reason uint32
}

func (LeaveReq) TypeID() TypeID { return TypeLeaveReq }

func (l LeaveReq) Encode() ([]byte, error) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], l.Reason)
	return buf[:], nil
}

// DecodeLeaveReq decodes a LeaveReq packet body.
func DecodeLeaveReq(body []byte) (LeaveReq, error) {
	if len(body) < 4 {
		return LeaveReq{}, fmt.Errorf("w3gs: leave request body too short (%d bytes)", len(body))
	}
	return LeaveReq{Reason: binary.LittleEndian.Uint32(body[:4])}, nil
}

// LeaveAck acknowledges a LeaveReq; it carries no payload.
type LeaveAck struct{}

func (LeaveAck) TypeID() TypeID          { return TypeLeaveAck }
func (LeaveAck) Encode() ([]byte, error) { return nil, nil }
