// Package dnsprobetest runs in-process DNS servers for tests, in the spirit
// of net/http/httptest. Constructors panic on failure because a test that
// cannot start its server should fail loudly.
package dnsprobetest

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"
)

const defaultTTL = 300

// Zone maps names to records. Names without records answer NXDOMAIN.
type Zone struct {
	mu      sync.Mutex
	rrs     map[string][]dns.RR
	dropped map[string]bool
	delay   time.Duration
}

func NewZone() *Zone {
	return &Zone{
		rrs:     map[string][]dns.RR{},
		dropped: map[string]bool{},
	}
}

// AddAddr adds an A or AAAA record for name.
func (z *Zone) AddAddr(name string, addr netip.Addr) *Zone {
	name = dns.CanonicalName(name)
	hdr := dns.RR_Header{Name: name, Class: dns.ClassINET, Ttl: defaultTTL}

	var record dns.RR
	if addr.Is6() && !addr.Is4In6() {
		hdr.Rrtype = dns.TypeAAAA
		record = &dns.AAAA{Hdr: hdr, AAAA: addr.AsSlice()}
	} else {
		hdr.Rrtype = dns.TypeA
		record = &dns.A{Hdr: hdr, A: addr.Unmap().AsSlice()}
	}

	z.mu.Lock()
	z.rrs[name] = append(z.rrs[name], record)
	z.mu.Unlock()
	return z
}

// Drop makes the server ignore queries for name so clients time out.
func (z *Zone) Drop(name string) *Zone {
	z.mu.Lock()
	z.dropped[dns.CanonicalName(name)] = true
	z.mu.Unlock()
	return z
}

// SetDelay delays every answer.
func (z *Zone) SetDelay(d time.Duration) *Zone {
	z.mu.Lock()
	z.delay = d
	z.mu.Unlock()
	return z
}

func (z *Zone) lookup(name string, qtype uint16) (records []dns.RR, found, dropped bool, delay time.Duration) {
	z.mu.Lock()
	defer z.mu.Unlock()

	name = dns.CanonicalName(name)
	all, found := z.rrs[name]
	for _, rr := range all {
		if rr.Header().Rrtype == qtype {
			records = append(records, rr)
		}
	}
	return records, found, z.dropped[name], z.delay
}

// ServeDNS implements dns.Handler.
func (z *Zone) ServeDNS(rw dns.ResponseWriter, query *dns.Msg) {
	resp := &dns.Msg{}
	if query.Response || len(query.Question) != 1 {
		resp.SetRcode(query, dns.RcodeRefused)
		rw.WriteMsg(resp)
		return
	}

	q0 := query.Question[0]
	records, found, dropped, delay := z.lookup(q0.Name, q0.Qtype)
	if dropped {
		return
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	switch {
	case found:
		resp.SetReply(query)
		resp.Answer = records
	default:
		resp.SetRcode(query, dns.RcodeNameError)
	}
	rw.WriteMsg(resp)
}

// Server answers over UDP and TCP on the same loopback port.
type Server struct {
	addr    string
	udp     *dns.Server
	tcp     *dns.Server
	udpDone chan struct{}
	tcpDone chan struct{}
	queries atomic.Int64
}

// NewServer starts a server for zone on 127.0.0.1.
func NewServer(zone *Zone) *Server {
	var (
		pconn    net.PacketConn
		listener net.Listener
		err      error
	)
	for attempt := 0; attempt < 10; attempt++ {
		pconn, err = net.ListenPacket("udp", "127.0.0.1:0")
		if err != nil {
			panic(fmt.Sprintf("dnsprobetest: listen udp: %v", err))
		}
		port := pconn.LocalAddr().(*net.UDPAddr).Port
		listener, err = net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err == nil {
			break
		}
		pconn.Close()
	}
	if err != nil {
		panic(fmt.Sprintf("dnsprobetest: listen tcp: %v", err))
	}

	srv := &Server{
		addr:    pconn.LocalAddr().String(),
		udpDone: make(chan struct{}),
		tcpDone: make(chan struct{}),
	}
	handler := dns.HandlerFunc(func(rw dns.ResponseWriter, m *dns.Msg) {
		srv.queries.Add(1)
		zone.ServeDNS(rw, m)
	})
	var started sync.WaitGroup
	started.Add(2)
	srv.udp = &dns.Server{PacketConn: pconn, Handler: handler, NotifyStartedFunc: started.Done}
	srv.tcp = &dns.Server{Listener: listener, Handler: handler, ReadTimeout: 2 * time.Second, NotifyStartedFunc: started.Done}

	go func() {
		srv.udp.ActivateAndServe()
		close(srv.udpDone)
	}()
	go func() {
		srv.tcp.ActivateAndServe()
		close(srv.tcpDone)
	}()
	started.Wait()
	return srv
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return s.addr
}

// Port returns the port shared by UDP and TCP.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.addr)
	n, _ := strconv.Atoi(port)
	return n
}

// Queries returns how many queries the server received.
func (s *Server) Queries() int64 {
	return s.queries.Load()
}

func (s *Server) Close() {
	s.udp.Shutdown()
	s.tcp.Shutdown()
	<-s.udpDone
	<-s.tcpDone
}
