package rtp

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/net/ipv4"
)

// UDPDestination is a unicast receiver of one track
type UDPDestination struct {
	rtpAddr *net.UDPAddr
	active  bool
	mu      sync.RWMutex
}

// RTPTransport sends RTP over UDP from the server's RTP port to unicast
// players and reads their RTCP reports on the port above it.
type RTPTransport struct {
	rtpListener  net.PacketConn
	rtcpListener net.PacketConn
	destinations map[string]*UDPDestination // destination key -> destination
	mu           sync.RWMutex
}

// NewRTPTransport creates a new RTP transport
func NewRTPTransport() *RTPTransport {
	return &RTPTransport{
		destinations: make(map[string]*UDPDestination),
	}
}

// StartUDP starts the RTP listener on rtpPort and the RTCP listener on
// rtpPort+1. With rtpPort 0 both are ephemeral and RTCP falls back to any
// free port when the one above RTP is taken.
func (t *RTPTransport) StartUDP(rtpPort int) error {
	rtpAddr := fmt.Sprintf(":%d", rtpPort)
	rtpListener, err := net.ListenPacket("udp", rtpAddr)
	if err != nil {
		return fmt.Errorf("failed to start RTP listener on %s: %w", rtpAddr, err)
	}

	rtcpAddr := fmt.Sprintf(":%d", portOf(rtpListener)+1)
	rtcpListener, err := net.ListenPacket("udp", rtcpAddr)
	if err != nil && rtpPort == 0 {
		rtcpAddr = ":0"
		rtcpListener, err = net.ListenPacket("udp", rtcpAddr)
	}
	if err != nil {
		rtpListener.Close()
		return fmt.Errorf("failed to start RTCP listener on %s: %w", rtcpAddr, err)
	}

	t.rtpListener = rtpListener
	t.rtcpListener = rtcpListener
	go t.readRTCP(rtcpListener)

	slog.Info("RTP transport started", "rtpPort", portOf(rtpListener), "rtcpPort", portOf(rtcpListener))
	return nil
}

// readRTCP logs the reports players send until the listener is closed
func (t *RTPTransport) readRTCP(conn net.PacketConn) {
	buf := make([]byte, MaxRTPPacketSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		packets, err := ParseRTCP(buf[:n])
		if err != nil {
			slog.Debug("Invalid RTCP packet", "from", addr, "err", err)
			continue
		}
		slog.Debug("RTCP received", "from", addr, "packets", DescribeRTCP(packets))
	}
}

func portOf(conn net.PacketConn) int {
	if conn == nil {
		return 0
	}
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.Port
	}
	return 0
}

// LocalPort returns the port the transport sends from, 0 when not started
func (t *RTPTransport) LocalPort() int {
	return portOf(t.rtpListener)
}

// RTCPPort returns the port RTCP reports are read on, 0 when not started
func (t *RTPTransport) RTCPPort() int {
	return portOf(t.rtcpListener)
}

// Stop stops the RTP transport
func (t *RTPTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rtpListener != nil {
		t.rtpListener.Close()
	}
	if t.rtcpListener != nil {
		t.rtcpListener.Close()
	}

	for _, dest := range t.destinations {
		dest.Close()
	}

	t.destinations = make(map[string]*UDPDestination)
	slog.Info("RTP transport stopped")
}

// AddDestination registers the client RTP port of a player track under key
func (t *RTPTransport) AddDestination(key, clientIP string, rtpPort int) error {
	rtpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(clientIP, fmt.Sprint(rtpPort)))
	if err != nil {
		return fmt.Errorf("invalid client RTP address: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.destinations[key] = &UDPDestination{rtpAddr: rtpAddr, active: true}
	slog.Info("RTP destination added", "key", key, "clientRTP", rtpAddr)
	return nil
}

// RemoveDestination removes a destination
func (t *RTPTransport) RemoveDestination(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if dest, exists := t.destinations[key]; exists {
		dest.Close()
		delete(t.destinations, key)
		slog.Info("RTP destination removed", "key", key)
	}
}

// SendRTPPacket sends a serialized RTP packet to the destination registered under key
func (t *RTPTransport) SendRTPPacket(key string, data []byte) error {
	t.mu.RLock()
	dest := t.destinations[key]
	t.mu.RUnlock()

	if dest == nil {
		return fmt.Errorf("RTP destination not found: %s", key)
	}
	if t.rtpListener == nil {
		return fmt.Errorf("RTP transport is not started")
	}
	return dest.send(data, t.rtpListener)
}

func (d *UDPDestination) send(data []byte, conn net.PacketConn) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.active {
		return fmt.Errorf("RTP destination is not active")
	}
	if _, err := conn.WriteTo(data, d.rtpAddr); err != nil {
		return fmt.Errorf("failed to send RTP packet: %w", err)
	}
	return nil
}

// Close deactivates the destination
func (d *UDPDestination) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.active = false
}

// MulticastSender sends RTP to a multicast group
type MulticastSender struct {
	conn  net.PacketConn
	pconn *ipv4.PacketConn
	group *net.UDPAddr
}

// NewMulticastSender opens a socket sending to group:port with the given TTL
func NewMulticastSender(group string, port int, ttl int) (*MulticastSender, error) {
	groupAddr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(group, fmt.Sprint(port)))
	if err != nil {
		return nil, fmt.Errorf("invalid multicast group: %w", err)
	}
	if !groupAddr.IP.IsMulticast() {
		return nil, fmt.Errorf("not a multicast address: %s", group)
	}

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to open multicast socket: %w", err)
	}

	pconn := ipv4.NewPacketConn(conn)
	if err := pconn.SetMulticastTTL(ttl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set multicast TTL: %w", err)
	}
	if err := pconn.SetMulticastLoopback(true); err != nil {
		slog.Warn("Failed to enable multicast loopback", "err", err)
	}

	slog.Info("Multicast sender started", "group", groupAddr, "ttl", ttl)
	return &MulticastSender{conn: conn, pconn: pconn, group: groupAddr}, nil
}

// Send writes a serialized RTP packet to the group
func (m *MulticastSender) Send(data []byte) error {
	if _, err := m.pconn.WriteTo(data, nil, m.group); err != nil {
		return fmt.Errorf("failed to send multicast RTP packet: %w", err)
	}
	return nil
}

// Close closes the multicast socket
func (m *MulticastSender) Close() error {
	return m.conn.Close()
}
