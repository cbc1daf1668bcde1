package wire

import (
	"io"

	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
)

// Call writes req to conn and reads back exactly one response frame. It is
// the shared request/response primitive used by the client library, by NM
// acting as a client of SS, and by SS acting as a client of NM.
func Call(conn io.ReadWriter, req *Message) (*Message, error) {
	if err := WriteMessage(conn, req); err != nil {
		return nil, err
	}
	return ReadMessage(conn)
}

// AsError converts a MsgError response into a *nserrors.Error, or returns
// nil if resp is not an error frame.
func AsError(resp *Message) error {
	if resp.Header.Type != MsgError {
		return nil
	}
	return nserrors.New(nserrors.Code(resp.Header.ErrorCode), "%s", string(resp.Payload)).WithFlags(resp.Header.Flags)
}

// WriteError sends an ERROR frame carrying the coded error.
func WriteError(w io.Writer, err *nserrors.Error) error {
	return WriteMessage(w, &Message{
		Header:  Header{Type: MsgError, ErrorCode: uint8(err.Code), Flags: err.Flags},
		Payload: []byte(err.Message),
	})
}

// WriteAck sends a no-payload ACK frame.
func WriteAck(w io.Writer) error {
	return WriteMessage(w, &Message{Header: Header{Type: MsgAck}})
}

// WriteResponse sends a RESPONSE frame carrying payload.
func WriteResponse(w io.Writer, payload []byte) error {
	return WriteMessage(w, &Message{Header: Header{Type: MsgResponse}, Payload: payload})
}

// WriteStop sends the stream-terminating STOP frame.
func WriteStop(w io.Writer) error {
	return WriteMessage(w, &Message{Header: Header{Type: MsgStop}})
}
