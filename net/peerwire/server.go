package peerwire

import (
	"bufio"
	"context"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

type Server struct {
	listener        net.Listener
	localID         string
	maxMessageBytes int
	handler         Handler
}

func NewServer(listener net.Listener, localID string, maxMessageBytes int, handler Handler) *Server {
	return &Server{
		listener:        listener,
		localID:         localID,
		maxMessageBytes: maxMessageBytes,
		handler:         handler,
	}
}

func (srv *Server) Addr() net.Addr {
	return srv.listener.Addr()
}

// Serve accepts inbound peer connections until the context is cancelled.
// Cancellation closes the listener, which unblocks Accept.
func (srv *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		log.Infof("peerwire.Server: context cancelled, closing listener %s", srv.listener.Addr())
		if err := srv.listener.Close(); err != nil {
			log.Warnf("peerwire.Server: error closing listener %s: %v", srv.listener.Addr(), err)
		}
	}()

	var tempDelay time.Duration // how long to sleep on accept failure
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				// Listener was closed by the shutdown goroutine; the
				// Accept error is expected.
				log.Infof("peerwire.Server: shutting down listener %s", srv.listener.Addr())
				return ctx.Err()
			default:
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					if tempDelay == 0 {
						tempDelay = 5 * time.Millisecond
					} else {
						tempDelay *= 2
					}
					if max := 1 * time.Second; tempDelay > max {
						tempDelay = max
					}
					log.Warnf("peerwire.Server: accept error on %s: %v; retrying in %v", srv.listener.Addr(), err, tempDelay)
					time.Sleep(tempDelay)
					continue
				}
				log.Errorf("peerwire.Server: critical accept error on %s: %v", srv.listener.Addr(), err)
				return err
			}
		}

		tempDelay = 0
		log.Infof("peerwire.Server: accepted connection from %s", conn.RemoteAddr())
		go srv.serveConn(conn)
	}
}

func (srv *Server) serveConn(conn net.Conn) {
	r := bufio.NewReader(conn)

	remoteID, err := handshake(conn, srv.localID, r)
	if err != nil {
		log.Errorf("peerwire.Server: handshake with %s failed: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	p := &Peer{conn: conn, id: remoteID, inbound: true}
	log.Infof("peerwire.Server: peer %s connected from %s", remoteID, p.Addr())

	srv.handler.PeerConnected(p)
	readLoop(p, r, srv.maxMessageBytes, srv.handler)
}
