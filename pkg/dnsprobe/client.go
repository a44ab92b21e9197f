// Package dnsprobe issues single DNS queries against a chosen server and
// interprets the answers the way the appliance checks need them.
package dnsprobe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/miekg/dns"
	"k8s.io/klog/v2"
)

// ErrNXDomain is returned by Query when the server answers NXDOMAIN.
var ErrNXDomain = errors.New("NXDOMAIN")

// Client resolves a name against a specific server.
type Client interface {
	Query(ctx context.Context, server, name string, qtype uint16, tcp bool) (*Answer, error)
}

// Answer is the part of a DNS response the checks look at.
type Answer struct {
	Rcode   int
	Records []string
}

type client struct {
	timeout time.Duration
}

// NewClient returns a Client whose queries give up after timeout.
func NewClient(timeout time.Duration) Client {
	return &client{timeout: timeout}
}

func (c *client) Query(ctx context.Context, server, name string, qtype uint16, tcp bool) (*Answer, error) {
	network := "udp"
	if tcp {
		network = "tcp"
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	query := &dns.Msg{}
	query.SetQuestion(dns.Fqdn(name), qtype)
	query.RecursionDesired = true

	dc := &dns.Client{Net: network, Timeout: c.timeout}
	resp, rtt, err := dc.ExchangeContext(ctx, query, server)
	if err != nil {
		klog.V(4).InfoS("DNS exchange failed", "server", server, "name", name, "net", network, "err", err)
		return nil, fmt.Errorf("%s query for %s via %s: %w", dns.TypeToString[qtype], name, network, err)
	}
	klog.V(5).InfoS("DNS exchange", "server", server, "name", name, "net", network, "rcode", dns.RcodeToString[resp.Rcode], "rtt", rtt)

	answer := &Answer{Rcode: resp.Rcode}
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != qtype {
			continue
		}
		answer.Records = append(answer.Records, recordText(rr))
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return answer, nil
	case dns.RcodeNameError:
		return answer, ErrNXDomain
	default:
		return answer, fmt.Errorf("%s query for %s: server returned %s", dns.TypeToString[qtype], name, dns.RcodeToString[resp.Rcode])
	}
}

func recordText(rr dns.RR) string {
	switch rec := rr.(type) {
	case *dns.A:
		return rec.A.String()
	case *dns.AAAA:
		return rec.AAAA.String()
	case *dns.CNAME:
		return rec.Target
	case *dns.PTR:
		return rec.Ptr
	case *dns.TXT:
		if len(rec.Txt) > 0 {
			return rec.Txt[0]
		}
		return ""
	default:
		return rr.String()
	}
}
