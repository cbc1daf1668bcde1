package client

import (
	"net"

	"github.com/shrey715/network-file-system-sub002/internal/wire"
)

// EditSession holds one Storage Server connection open across a
// lock→word→unlock sequence, since sentence locks are tracked per TCP
// connection: a disconnect releases every lock the connection held.
// Use one EditSession per sentence being edited at a time; a single
// session may lock and unlock several sentences in turn as long as it
// releases each before locking the next.
type EditSession struct {
	conn     net.Conn
	username string
	folder   string
	name     string
}

// BeginEdit locates the Storage Server hosting (folder, name) and opens
// a dedicated connection to it for the caller's subsequent lock/word/
// unlock calls.
func (c *Client) BeginEdit(folder, name string) (*EditSession, error) {
	ssAddr, err := c.locate(wire.OpWrite, folder, name)
	if err != nil {
		return nil, err
	}
	conn, err := c.dialSS(ssAddr)
	if err != nil {
		return nil, err
	}
	return &EditSession{conn: conn, username: c.username, folder: folder, name: name}, nil
}

// Close ends the session's connection to the Storage Server, releasing
// any sentence lock it still held.
func (es *EditSession) Close() error { return es.conn.Close() }

func (es *EditSession) call(op wire.OpCode, sentenceIdx, wordIdx int, payload []byte) (*wire.Message, error) {
	req := wire.Request(op, es.username)
	req.Header.Foldername = es.folder
	req.Header.Filename = es.name
	req.Header.SentenceIndex = int32(sentenceIdx)
	req.Header.WordIndex = int32(wordIdx)
	req.Payload = payload
	return wire.Call(es.conn, req)
}

// Lock takes the exclusive sentence lock at sentenceIdx.
func (es *EditSession) Lock(sentenceIdx int) error {
	resp, err := es.call(wire.OpSSWriteLock, sentenceIdx, wire.WordReplaceAll, nil)
	return respErr(resp, err)
}

// WriteWord replaces wordIdx within the locked sentence with content.
// wordIdx may be wire.WordReplaceAll to replace the whole sentence.
func (es *EditSession) WriteWord(sentenceIdx, wordIdx int, content string) error {
	resp, err := es.call(wire.OpSSWriteWord, sentenceIdx, wordIdx, []byte(wire.EscapeNewlines(content)))
	return respErr(resp, err)
}

// Unlock releases the exclusive sentence lock at sentenceIdx.
func (es *EditSession) Unlock(sentenceIdx int) error {
	resp, err := es.call(wire.OpSSWriteUnlock, sentenceIdx, wire.WordReplaceAll, nil)
	return respErr(resp, err)
}
