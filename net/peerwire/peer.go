// Package peerwire implements the peer transport: newline-delimited JSON
// over TCP, one message object per line. On connect each side writes its
// formatted node id as a JSON string line before any protocol traffic; after
// the handshake, messages are delivered to the handler whole and in
// per-connection FIFO order.
package peerwire

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Handler receives transport events. PeerMessage is called synchronously
// from the connection's read loop; raw is only valid for the duration of
// the call.
type Handler interface {
	PeerConnected(p *Peer)
	PeerMessage(p *Peer, raw []byte)
	PeerDisconnected(p *Peer)
}

// Peer is one live connection to a remote node.
type Peer struct {
	conn    net.Conn
	id      string // remote node id, from the handshake
	inbound bool

	wmu       sync.Mutex
	closeOnce sync.Once
}

func (p *Peer) ID() string {
	return p.id
}

func (p *Peer) Inbound() bool {
	return p.inbound
}

func (p *Peer) Addr() string {
	return p.conn.RemoteAddr().String()
}

// Send marshals msg and writes it as one line. Concurrent senders are
// serialized so a message is never interleaved with another.
func (p *Peer) Send(msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("peerwire: encoding message for %s: %w", p.id, err)
	}
	raw = append(raw, '\n')

	p.wmu.Lock()
	defer p.wmu.Unlock()
	if _, err := p.conn.Write(raw); err != nil {
		return fmt.Errorf("peerwire: sending to %s: %w", p.id, err)
	}
	return nil
}

func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.conn.Close()
	})
	return err
}

// handshake exchanges node ids: write ours, read theirs. Both sides write
// first, so neither blocks on the other.
func handshake(conn net.Conn, localID string, r *bufio.Reader) (string, error) {
	own, err := json.Marshal(localID)
	if err != nil {
		return "", err
	}
	if _, err := conn.Write(append(own, '\n')); err != nil {
		return "", fmt.Errorf("peerwire: sending handshake: %w", err)
	}

	line, err := r.ReadBytes('\n')
	if err != nil {
		return "", fmt.Errorf("peerwire: reading handshake: %w", err)
	}

	var remoteID string
	if err := json.Unmarshal(line, &remoteID); err != nil {
		return "", fmt.Errorf("peerwire: decoding handshake: %w", err)
	}
	if remoteID == "" {
		return "", fmt.Errorf("peerwire: peer sent an empty id")
	}
	return remoteID, nil
}

// readLoop delivers messages until the connection dies. The caller has
// already announced the peer via PeerConnected.
func readLoop(p *Peer, r *bufio.Reader, maxMessageBytes int, handler Handler) {
	defer func() {
		p.Close()
		handler.PeerDisconnected(p)
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxMessageBytes)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		handler.PeerMessage(p, raw)
	}

	if err := scanner.Err(); err != nil {
		log.Debugf("peerwire: connection to %s ended: %v", p.id, err)
	}
}

// Dial connects to a remote node, performs the id handshake and starts the
// read loop. The handler sees PeerConnected before Dial returns.
func Dial(address, localID string, maxMessageBytes int, handler Handler) (*Peer, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}

	r := bufio.NewReader(conn)
	remoteID, err := handshake(conn, localID, r)
	if err != nil {
		conn.Close()
		return nil, err
	}

	p := &Peer{conn: conn, id: remoteID, inbound: false}
	log.Infof("peerwire: connected to %s at %s", remoteID, p.Addr())

	handler.PeerConnected(p)
	go readLoop(p, r, maxMessageBytes, handler)

	return p, nil
}
