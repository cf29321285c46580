package transport

import (
	"context"
	"crypto/ed25519"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	mdns "github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
	"go.uber.org/zap"

	"github.com/driftmesh/drift/internal/routing"
)

const mdnsTag = "driftmesh"

// Discovery owns the libp2p host and mDNS service, and feeds every peer
// it sees into a Local Cell.
type Discovery struct {
	host host.Host
	cell *routing.LocalCell
	log  *zap.Logger
}

// peerFoundNotifee bridges mDNS discovery events into the local cell and
// dials the peer so libp2p's transport can reach it.
type peerFoundNotifee struct {
	host host.Host
	cell *routing.LocalCell
	log  *zap.Logger
}

func (n *peerFoundNotifee) HandlePeerFound(info peer.AddrInfo) {
	if err := n.host.Connect(context.Background(), info); err != nil {
		n.log.Debug("mdns peer connect failed", zap.String("peer", info.ID.String()), zap.Error(err))
		return
	}
	var id routing.PeerID
	copy(id[:], []byte(info.ID))
	n.cell.PeerSeen(id, routing.TransportTCP, time.Now())
}

// NewDiscovery starts a libp2p host identified by identityKey, listening
// on the given multiaddrs, with mDNS peer discovery feeding cell.
func NewDiscovery(identityKey ed25519.PrivateKey, listenAddrs []string, cell *routing.LocalCell, log *zap.Logger) (*Discovery, error) {
	libPriv, _, err := crypto.KeyPairFromStdKey(&identityKey)
	if err != nil {
		return nil, err
	}

	h, err := libp2p.New(
		libp2p.Identity(libPriv),
		libp2p.DefaultSecurity,
		libp2p.DefaultMuxers,
		libp2p.DefaultTransports,
		libp2p.ListenAddrStrings(listenAddrs...),
	)
	if err != nil {
		return nil, err
	}

	notifee := &peerFoundNotifee{host: h, cell: cell, log: log}
	svc := mdns.NewMdnsService(h, mdnsTag, notifee)
	if err := svc.Start(); err != nil {
		_ = h.Close()
		return nil, err
	}

	return &Discovery{host: h, cell: cell, log: log}, nil
}

func (d *Discovery) Host() host.Host { return d.host }

func (d *Discovery) Close() error { return d.host.Close() }

// RunPingLoop periodically pings every connected peer and feeds success
// or failure into the local cell's reliability score.
func (d *Discovery) RunPingLoop(ctx context.Context, interval time.Duration) {
	svc := ping.NewPingService(d.host)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, pid := range d.host.Network().Peers() {
				var id routing.PeerID
				copy(id[:], []byte(pid))
				ch := svc.Ping(ctx, pid)
				select {
				case res := <-ch:
					d.cell.UpdateReliability(id, res.Error == nil)
				case <-time.After(2 * time.Second):
					d.cell.UpdateReliability(id, false)
				}
			}
		}
	}
}
