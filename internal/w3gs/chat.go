package w3gs

import (
	"encoding/binary"
	"fmt"
)

// ChatMessageKind distinguishes scoped (player-to-selected-recipients) chat
// from broadcast/system chat. Only Scoped chat is subject to mute filtering.
type ChatMessageKind uint8

const (
	ChatBroadcast ChatMessageKind = iota
	ChatScoped
)

// ChatMessage is the payload carried by both ChatToHost and ChatFromHost.
type ChatMessage struct {
	Kind ChatMessageKind
	Text string
}

// ChatToHost is chat sent by the client towards the host (node, via the
// relay). FromPlayer is the sender's slot player id; ToPlayers lists scoped
// recipients and is empty for broadcast messages.
type ChatToHost struct {
	FromPlayer uint8
	ToPlayers  []uint8
	Message    ChatMessage
}

func (ChatToHost) TypeID() TypeID { return TypeChatToHost }

func (c ChatToHost) Encode() ([]byte, error) {
	if len(c.ToPlayers) > 0xff {
		return nil, fmt.Errorf("w3gs: too many chat recipients (%d)", len(c.ToPlayers))
	}
	text := []byte(c.Message.Text)
	if len(text) > 0xffff {
		return nil, fmt.Errorf("w3gs: chat message too long (%d bytes)", len(text))
	}
	buf := make([]byte, 0, 3+len(c.ToPlayers)+2+len(text))
	buf = append(buf, c.FromPlayer, byte(c.Message.Kind), byte(len(c.ToPlayers)))
	buf = append(buf, c.ToPlayers...)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(text)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, text...)
	return buf, nil
}

// DecodeChatToHost decodes the body of a ChatToHost/ChatFromHost packet.
func DecodeChatToHost(body []byte) (ChatToHost, error) {
	if len(body) < 3 {
		return ChatToHost{}, fmt.Errorf("w3gs: chat body too short (%d bytes)", len(body))
	}
	from := body[0]
	kind := ChatMessageKind(body[1])
	n := int(body[2])
	offset := 3
	if len(body) < offset+n {
		return ChatToHost{}, fmt.Errorf("w3gs: chat body truncated (recipients)")
	}
	recipients := append([]uint8(nil), body[offset:offset+n]...)
	offset += n
	if len(body) < offset+2 {
		return ChatToHost{}, fmt.Errorf("w3gs: chat body truncated (text length)")
	}
	textLen := int(binary.LittleEndian.Uint16(body[offset : offset+2]))
	offset += 2
	if len(body) < offset+textLen {
		return ChatToHost{}, fmt.Errorf("w3gs: chat body truncated (text)")
	}
	text := string(body[offset : offset+textLen])
	return ChatToHost{
		FromPlayer: from,
		ToPlayers:  recipients,
		Message:    ChatMessage{Kind: kind, Text: text},
	}, nil
}

// ChatFromHost is chat relayed from the host (node, or synthesized by the
// relay itself) towards the client. It wraps the same wire shape as
// ChatToHost — the original protocol reuses it verbatim.
type ChatFromHost struct {
	Inner ChatToHost
}

func (ChatFromHost) TypeID() TypeID { return TypeChatFromHost }

func (c ChatFromHost) Encode() ([]byte, error) { return c.Inner.Encode() }

// DecodeChatFromHost decodes a ChatFromHost packet body.
func DecodeChatFromHost(body []byte) (ChatFromHost, error) {
	inner, err := DecodeChatToHost(body)
	if err != nil {
		return ChatFromHost{}, err
	}
	return ChatFromHost{Inner: inner}, nil
}

// FromPlayer returns the sender's slot player id.
func (c ChatFromHost) FromPlayer() uint8 { return c.Inner.FromPlayer }

// PrivateToSelf builds a ChatFromHost that is addressed only to playerID,
// used by the relay to deliver synthesized command replies.
func PrivateToSelf(playerID uint8, text string) ChatFromHost {
	return ChatFromHost{
		Inner: ChatToHost{
			FromPlayer: 0,
			ToPlayers:  []uint8{playerID},
			Message:    ChatMessage{Kind: ChatScoped, Text: text},
		},
	}
}
