// Package ping sends ICMP echo requests.
package ping

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"k8s.io/klog/v2"
)

const (
	protocolICMP     = 1
	protocolIPv6ICMP = 58
)

type Stats struct {
	Sent     int
	Received int
	RTTs     []time.Duration
}

// Loss is the fraction of requests without a reply.
func (s *Stats) Loss() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Sent-s.Received) / float64(s.Sent)
}

func (s *Stats) String() string {
	out := fmt.Sprintf("%d packets transmitted, %d received, %.0f%% packet loss", s.Sent, s.Received, s.Loss()*100)
	if len(s.RTTs) == 0 {
		return out
	}
	lo, hi := s.RTTs[0], s.RTTs[0]
	var sum time.Duration
	for _, rtt := range s.RTTs {
		lo = min(lo, rtt)
		hi = max(hi, rtt)
		sum += rtt
	}
	avg := sum / time.Duration(len(s.RTTs))
	return fmt.Sprintf("%s, rtt min/avg/max = %.3f/%.3f/%.3f ms", out, ms(lo), ms(avg), ms(hi))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type Pinger interface {
	Ping(ctx context.Context, addr netip.Addr, count int) (*Stats, error)
}

type pinger struct {
	interval time.Duration
	timeout  time.Duration
}

// NewPinger returns a Pinger sending one request per interval and giving
// up on the whole exchange after timeout.
func NewPinger(interval, timeout time.Duration) Pinger {
	if interval <= 0 {
		interval = time.Second
	}
	return &pinger{interval: interval, timeout: timeout}
}

func (p *pinger) Ping(ctx context.Context, addr netip.Addr, count int) (*Stats, error) {
	if count <= 0 {
		count = 1
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conn, unprivileged, err := listen(addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	v6 := addr.Is6() && !addr.Is4In6()
	var dst net.Addr = &net.IPAddr{IP: addr.AsSlice(), Zone: addr.Zone()}
	if unprivileged {
		dst = &net.UDPAddr{IP: addr.AsSlice(), Zone: addr.Zone()}
	}

	id := os.Getpid() & 0xffff
	stats := &Stats{}
	buf := make([]byte, 1500)

	for seq := 1; seq <= count; seq++ {
		if ctx.Err() != nil {
			break
		}
		msg, err := echoRequest(v6, id, seq)
		if err != nil {
			return stats, err
		}

		sent := time.Now()
		if _, err := conn.WriteTo(msg, dst); err != nil {
			return stats, fmt.Errorf("sending echo request to %s: %w", addr, err)
		}
		stats.Sent++

		deadline := sent.Add(p.interval)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return stats, err
		}

		for {
			n, _, err := conn.ReadFrom(buf)
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					break
				}
				return stats, fmt.Errorf("reading echo reply from %s: %w", addr, err)
			}
			replyID, replySeq, ok := parseReply(v6, buf[:n])
			// unprivileged sockets rewrite the identifier
			if !ok || replySeq != seq || (!unprivileged && replyID != id) {
				continue
			}
			rtt := time.Since(sent)
			stats.Received++
			stats.RTTs = append(stats.RTTs, rtt)
			klog.V(4).InfoS("Echo reply", "addr", addr, "seq", seq, "rtt", rtt)
			break
		}

		if wait := time.Until(deadline); wait > 0 && seq < count {
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
		}
	}

	return stats, nil
}

// listen prefers an unprivileged datagram socket and falls back to a raw one.
func listen(addr netip.Addr) (*icmp.PacketConn, bool, error) {
	network, raw, bind := "udp4", "ip4:icmp", "0.0.0.0"
	if addr.Is6() && !addr.Is4In6() {
		network, raw, bind = "udp6", "ip6:ipv6-icmp", "::"
	}

	conn, err := icmp.ListenPacket(network, bind)
	if err == nil {
		return conn, true, nil
	}
	klog.V(3).InfoS("Unprivileged ICMP unavailable, trying raw socket", "err", err)

	conn, rawErr := icmp.ListenPacket(raw, bind)
	if rawErr != nil {
		return nil, false, fmt.Errorf("opening ICMP socket: %v; raw socket: %w", err, rawErr)
	}
	return conn, false, nil
}

func echoRequest(v6 bool, id, seq int) ([]byte, error) {
	var typ icmp.Type = ipv4.ICMPTypeEcho
	if v6 {
		typ = ipv6.ICMPTypeEchoRequest
	}
	msg := icmp.Message{
		Type: typ,
		Code: 0,
		Body: &icmp.Echo{
			ID:   id,
			Seq:  seq,
			Data: []byte("pihole-probe"),
		},
	}
	return msg.Marshal(nil)
}

func parseReply(v6 bool, b []byte) (id, seq int, ok bool) {
	proto, want := protocolICMP, icmp.Type(ipv4.ICMPTypeEchoReply)
	if v6 {
		proto, want = protocolIPv6ICMP, icmp.Type(ipv6.ICMPTypeEchoReply)
	}
	msg, err := icmp.ParseMessage(proto, b)
	if err != nil || msg.Type != want {
		return 0, 0, false
	}
	echo, isEcho := msg.Body.(*icmp.Echo)
	if !isEcho {
		return 0, 0, false
	}
	return echo.ID, echo.Seq, true
}
