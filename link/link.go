// Package link synchronizes tempo and playback position with a remote
// peer over UDP. Each side periodically broadcasts its clock snapshot
// and follows the other's when its own clock source is set to link.
package link

import (
	"encoding/json"
	"log"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/dkmn/drift/audio"
)

const broadcastInterval = 100 * time.Millisecond

// message is the wire format. ID identifies the sender so a peer can
// ignore its own packets when both sides use the same broadcast
// address.
type message struct {
	ID      uint64  `json:"id"`
	Tempo   float64 `json:"tempo"`
	Beat    float64 `json:"beat"`
	Phase   float64 `json:"phase"`
	Running bool    `json:"running"`
}

// Peer is one end of a two-way clock sync session.
type Peer struct {
	id      uint64
	conn    *net.UDPConn
	machine *audio.Machine
	quit    chan struct{}
	done    chan struct{}

	mu     sync.Mutex
	remote *net.UDPAddr
}

func (p *Peer) remoteAddr() *net.UDPAddr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote
}

func (p *Peer) setRemote(addr *net.UDPAddr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remote == nil {
		p.remote = addr
	}
}

// NewPeer listens on addr. When peer is non-empty snapshots are sent
// there; otherwise they go to whoever contacted us last.
func NewPeer(addr, peer string, m *audio.Machine) (*Peer, error) {
	local, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, err
	}
	p := &Peer{
		id:      rand.Uint64(),
		conn:    conn,
		machine: m,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if peer != "" {
		p.remote, err = net.ResolveUDPAddr("udp", peer)
		if err != nil {
			conn.Close()
			return nil, err
		}
	}
	return p, nil
}

// Run receives remote snapshots and broadcasts local ones until Close.
func (p *Peer) Run() {
	defer close(p.done)
	go p.broadcast()

	buf := make([]byte, 512)
	for {
		n, from, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-p.quit:
				return
			default:
			}
			log.Printf("link: read: %v", err)
			return
		}
		p.handle(buf[:n], from)
	}
}

// handle applies one datagram and reports whether it was accepted.
// Packets carrying our own sender id are echoes of our broadcasts and
// are dropped.
func (p *Peer) handle(data []byte, from *net.UDPAddr) bool {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("link: bad packet from %s: %v", from, err)
		return false
	}
	if msg.ID == p.id {
		return false
	}
	p.setRemote(from)
	p.machine.LinkUpdate(audio.Snapshot{
		Tempo:   msg.Tempo,
		Beat:    msg.Beat,
		Phase:   msg.Phase,
		Running: msg.Running,
	})
	return true
}

func (p *Peer) broadcast() {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
		}
		remote := p.remoteAddr()
		if remote == nil {
			continue
		}
		snap := p.machine.LinkSnapshot()
		data, err := json.Marshal(message{
			ID:      p.id,
			Tempo:   snap.Tempo,
			Beat:    snap.Beat,
			Phase:   snap.Phase,
			Running: snap.Running,
		})
		if err != nil {
			continue
		}
		if _, err := p.conn.WriteToUDP(data, remote); err != nil {
			log.Printf("link: send: %v", err)
		}
	}
}

// Close stops both loops and releases the socket.
func (p *Peer) Close() {
	close(p.quit)
	p.conn.Close()
	<-p.done
}
