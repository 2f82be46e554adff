// Package mdisco implements LAN peer discovery over UDP multicast.
// Announce: a JSON announcement naming this node and its listen address is
// sent to the multicast group. Listen: announcements from other nodes are
// received and passed to a registered callback, which typically dials the
// announced address.
package mdisco

import (
	"context"
	"encoding/json"
	"net"

	log "github.com/sirupsen/logrus"
)

// Announcement is one discovery datagram.
type Announcement struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
}

type Discovery struct {
	rc *net.UDPConn
	wc *net.UDPConn

	localID string
	address string
}

// New opens the multicast group for both reading and writing. address is
// the "host:port" this node's peer listener is reachable on; it travels in
// every announcement.
func New(multicastAddr, localID, address string) (*Discovery, error) {
	group, err := net.ResolveUDPAddr("udp4", multicastAddr)
	if err != nil {
		return nil, err
	}

	rc, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return nil, err
	}

	wc, err := net.DialUDP("udp4", nil, group)
	if err != nil {
		rc.Close()
		return nil, err
	}

	return &Discovery{
		rc:      rc,
		wc:      wc,
		localID: localID,
		address: address,
	}, nil
}

// Announce publishes one announcement to the group.
func (d *Discovery) Announce(ctx context.Context) error {
	raw, err := json.Marshal(&Announcement{NodeID: d.localID, Address: d.address})
	if err != nil {
		return err
	}

	if _, err := d.wc.Write(raw); err != nil {
		log.Errorf("mdisco: failed to publish announcement: %v", err)
	}

	return nil
}

// Listen receives announcements until the context is cancelled and invokes
// onPeer for every announcement from a node other than ours. Cancellation
// closes the read socket, which unblocks the read.
func (d *Discovery) Listen(ctx context.Context, onPeer func(nodeID, address string)) error {
	go func() {
		<-ctx.Done()
		d.rc.Close()
	}()

	buf := make([]byte, 1024)
	for {
		n, _, err := d.rc.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				log.Errorf("mdisco: failed to read announcement: %v", err)
				continue
			}
		}

		var ann Announcement
		if err := json.Unmarshal(buf[:n], &ann); err != nil {
			log.Errorf("mdisco: failed to unmarshal announcement: %v", err)
			continue
		}

		if ann.NodeID == "" || ann.Address == "" {
			log.Debugf("mdisco: ignoring incomplete announcement %+v", ann)
			continue
		}
		if ann.NodeID == d.localID {
			// Our own announcement looped back
			continue
		}

		onPeer(ann.NodeID, ann.Address)
	}
}

func (d *Discovery) Close() error {
	d.rc.Close()
	return d.wc.Close()
}
