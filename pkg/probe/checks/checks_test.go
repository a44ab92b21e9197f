package checks

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/punasusi/pihole-probe/pkg/dnsprobe"
	"github.com/punasusi/pihole-probe/pkg/ping"
	"github.com/punasusi/pihole-probe/pkg/probe"
	"github.com/punasusi/pihole-probe/pkg/webprobe"
)

var target = probe.NewTarget(netip.MustParseAddr("192.0.2.10"), 53, 80)

type dnsEntry struct {
	records []string
	err     error
}

// fakeDNS answers NXDOMAIN for every name it does not know.
type fakeDNS struct {
	mu      sync.Mutex
	entries map[string]dnsEntry
	queries []string
}

func (f *fakeDNS) Query(ctx context.Context, server, name string, qtype uint16, tcp bool) (*dnsprobe.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name = strings.TrimSuffix(name, ".")
	f.queries = append(f.queries, name)
	e, ok := f.entries[name]
	if !ok {
		return &dnsprobe.Answer{Rcode: dns.RcodeNameError}, dnsprobe.ErrNXDomain
	}
	if e.err != nil {
		return nil, e.err
	}
	return &dnsprobe.Answer{Rcode: dns.RcodeSuccess, Records: e.records}, nil
}

type webEntry struct {
	status int
	body   string
	err    error
}

type fakeWeb struct {
	entries map[string]webEntry
	hosts   map[string]string
}

func (f *fakeWeb) Get(ctx context.Context, url, host string) (*webprobe.Response, error) {
	path := strings.TrimPrefix(url, target.WebBase)
	if f.hosts == nil {
		f.hosts = map[string]string{}
	}
	f.hosts[path] = host
	e, ok := f.entries[path]
	if !ok {
		return &webprobe.Response{StatusCode: 404}, nil
	}
	if e.err != nil {
		return nil, e.err
	}
	return &webprobe.Response{StatusCode: e.status, Body: []byte(e.body)}, nil
}

type fakePinger struct {
	stats *ping.Stats
	err   error
	count int
}

func (f *fakePinger) Ping(ctx context.Context, addr netip.Addr, count int) (*ping.Stats, error) {
	f.count = count
	return f.stats, f.err
}

func defaults(c probe.Check) probe.Params {
	params := probe.Params{}
	for _, p := range c.Parameters() {
		params[p.Name] = p.Default
	}
	return params
}

func run(c probe.Check) probe.Outcome {
	return c.Run(context.Background(), target, defaults(c))
}

func TestDefaultRegistry(t *testing.T) {
	r, err := probe.NewRegistry(Default(Deps{}).Checks()...)
	if err != nil {
		t.Fatalf("default checks are invalid: %v", err)
	}

	want := []struct {
		id       string
		rank     int
		category probe.Category
	}{
		{"ping", 1, probe.Optional},
		{"dns-self", 4, probe.Mandatory},
		{"dns-good-site", 5, probe.Mandatory},
		{"dns-localhost", 8, probe.Mandatory},
		{"dns-localhost-localdomain", 9, probe.Mandatory},
		{"dns-bad-site", 10, probe.Mandatory},
		{"web-blocked", 50, probe.Mandatory},
		{"admin-ok", 51, probe.Mandatory},
		{"api", 55, probe.Mandatory},
		{"dns-stress", 90, probe.Optional},
	}
	got := r.Checks()
	if len(got) != len(want) {
		t.Fatalf("got %d checks, want %d", len(got), len(want))
	}
	for i, w := range want {
		c := got[i]
		if c.ID() != w.id || c.Rank() != w.rank || c.Category() != w.category {
			t.Errorf("check %d = %s/%d/%s, want %s/%d/%s", i, c.ID(), c.Rank(), c.Category(), w.id, w.rank, w.category)
		}
		if c.Summary() == "" {
			t.Errorf("%s has no summary", c.ID())
		}
	}
}

func TestPing(t *testing.T) {
	tests := []struct {
		name   string
		pinger *fakePinger
		passed bool
		detail string
	}{
		{"answered", &fakePinger{stats: &ping.Stats{Sent: 4, Received: 4}}, true, "4 received"},
		{"partial loss", &fakePinger{stats: &ping.Stats{Sent: 4, Received: 1}}, true, "75% packet loss"},
		{"no replies", &fakePinger{stats: &ping.Stats{Sent: 4}}, false, "Host not pingable"},
		{"socket error", &fakePinger{err: errors.New("operation not permitted")}, false, "operation not permitted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(NewPing(tt.pinger, 0))
			if out.Passed != tt.passed || !strings.Contains(out.Detail, tt.detail) {
				t.Errorf("outcome = %+v, want passed=%v containing %q", out, tt.passed, tt.detail)
			}
			if tt.pinger.count != defaultPingCount {
				t.Errorf("sent %d pings, want %d", tt.pinger.count, defaultPingCount)
			}
		})
	}
}

func TestDNSChecks(t *testing.T) {
	self := []string{"192.0.2.10"}
	other := []string{"142.250.74.68"}
	timeout := dnsEntry{err: fmt.Errorf("A query for x via udp: %w", context.DeadlineExceeded)}

	tests := []struct {
		name    string
		check   func(dnsprobe.Client) probe.Check
		entries map[string]dnsEntry
		passed  bool
		detail  string
	}{
		{"self resolves", func(c dnsprobe.Client) probe.Check { return NewDNSSelf(c) },
			map[string]dnsEntry{"pi.hole": {records: self}}, true, "A: pi.hole == 192.0.2.10"},
		{"self wrong address", func(c dnsprobe.Client) probe.Check { return NewDNSSelf(c) },
			map[string]dnsEntry{"pi.hole": {records: other}}, false, "not firewalled"},
		{"self unknown", func(c dnsprobe.Client) probe.Check { return NewDNSSelf(c) },
			nil, false, "query failed"},

		{"good site resolves elsewhere", func(c dnsprobe.Client) probe.Check { return NewDNSGoodSite(c) },
			map[string]dnsEntry{"www.google.com": {records: other}}, true, "A: www.google.com != 192.0.2.10"},
		{"good site blocked", func(c dnsprobe.Client) probe.Check { return NewDNSGoodSite(c) },
			map[string]dnsEntry{"www.google.com": {records: self}}, false, "check blacklists"},
		{"good site timeout", func(c dnsprobe.Client) probe.Check { return NewDNSGoodSite(c) },
			map[string]dnsEntry{"www.google.com": timeout}, false, "query failed"},

		{"localhost nxdomain", func(c dnsprobe.Client) probe.Check { return NewDNSLocalhost(c) },
			nil, true, "NXDOMAIN"},
		{"localhost loopback", func(c dnsprobe.Client) probe.Check { return NewDNSLocalhost(c) },
			map[string]dnsEntry{"localhost": {records: []string{"127.0.0.1"}}}, true, "returning 127.0.0.1"},
		{"localhost leaks", func(c dnsprobe.Client) probe.Check { return NewDNSLocalhost(c) },
			map[string]dnsEntry{"localhost": {records: other}}, false, "localhost should be NXDOMAIN"},

		{"localdomain nxdomain", func(c dnsprobe.Client) probe.Check { return NewDNSLocalhostLocaldomain(c) },
			nil, true, "NXDOMAIN"},
		{"localdomain resolves", func(c dnsprobe.Client) probe.Check { return NewDNSLocalhostLocaldomain(c) },
			map[string]dnsEntry{"localhost.localdomain": {records: []string{"127.0.0.1"}}}, false, "should whitelist"},
		{"localdomain timeout", func(c dnsprobe.Client) probe.Check { return NewDNSLocalhostLocaldomain(c) },
			map[string]dnsEntry{"localhost.localdomain": timeout}, false, "query failed"},

		{"ad sites blocked", func(c dnsprobe.Client) probe.Check { return NewDNSBadSite(c) },
			map[string]dnsEntry{"www.doubleclick.net": {records: self}, "www.googleadservices.com": {records: self}}, true, "Returning pi.hole IP"},
		{"ad site nxdomain", func(c dnsprobe.Client) probe.Check { return NewDNSBadSite(c) },
			map[string]dnsEntry{"www.doubleclick.net": {records: self}}, false, "Are blacklists setup?"},
		{"ad site resolves upstream", func(c dnsprobe.Client) probe.Check { return NewDNSBadSite(c) },
			map[string]dnsEntry{"www.doubleclick.net": {records: other}, "www.googleadservices.com": {records: self}}, false, "A: www.doubleclick.net != 192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(tt.check(&fakeDNS{entries: tt.entries}))
			if out.Passed != tt.passed {
				t.Errorf("passed = %v, want %v (%s)", out.Passed, tt.passed, out.Detail)
			}
			if !strings.Contains(out.Detail, tt.detail) {
				t.Errorf("detail = %q, want it to contain %q", out.Detail, tt.detail)
			}
		})
	}
}

func TestDNSScopedTarget(t *testing.T) {
	scoped := probe.NewTarget(netip.MustParseAddr("fe80::1%eth0"), 53, 80)
	client := &fakeDNS{entries: map[string]dnsEntry{
		"pi.hole":                  {records: []string{"fe80::1"}},
		"www.doubleclick.net":      {records: []string{"fe80::1"}},
		"www.googleadservices.com": {records: []string{"fe80::1"}},
		"www.google.com":           {records: []string{"fe80::1"}},
	}}

	tests := []struct {
		check  probe.Check
		passed bool
		detail string
	}{
		{NewDNSSelf(client), true, "AAAA: pi.hole == fe80::1"},
		{NewDNSBadSite(client), true, "Returning pi.hole IP"},
		{NewDNSGoodSite(client), false, "AAAA: www.google.com == fe80::1"},
	}
	for _, tt := range tests {
		t.Run(tt.check.ID(), func(t *testing.T) {
			out := tt.check.Run(context.Background(), scoped, defaults(tt.check))
			if out.Passed != tt.passed {
				t.Errorf("passed = %v, want %v (%s)", out.Passed, tt.passed, out.Detail)
			}
			if !strings.Contains(out.Detail, tt.detail) {
				t.Errorf("detail = %q, want it to contain %q", out.Detail, tt.detail)
			}
		})
	}
}

func TestDNSBadSiteCustomSites(t *testing.T) {
	client := &fakeDNS{entries: map[string]dnsEntry{"ads.example": {records: []string{"192.0.2.10"}}}}
	c := NewDNSBadSite(client)

	out := c.Run(context.Background(), target, probe.Params{"sites": " ads.example , "})
	if !out.Passed {
		t.Fatalf("outcome = %+v", out)
	}
	if len(client.queries) != 1 || client.queries[0] != "ads.example" {
		t.Errorf("queries = %v", client.queries)
	}

	if out := c.Run(context.Background(), target, probe.Params{"sites": ""}); out.Passed {
		t.Error("no sites must not pass")
	}
}

func TestWebChecks(t *testing.T) {
	longScript := "/*! AdminLTE app.js */\n" + strings.Repeat("x", 400)
	refused := webEntry{err: errors.New("connection refused")}

	tests := []struct {
		name    string
		check   func(webprobe.Client) probe.Check
		entries map[string]webEntry
		passed  bool
		detail  string
	}{
		{"blocked script", func(c webprobe.Client) probe.Check { return NewWebBlocked(c) },
			map[string]webEntry{"/1.js": {200, BlockedMarker + "\n", nil}}, true, BlockedMarker},
		{"blocked wrong body", func(c webprobe.Client) probe.Check { return NewWebBlocked(c) },
			map[string]webEntry{"/1.js": {200, "console.log(1)", nil}}, false, "check lighttpd"},
		{"blocked 404", func(c webprobe.Client) probe.Check { return NewWebBlocked(c) },
			nil, false, "status code 404"},
		{"blocked refused", func(c webprobe.Client) probe.Check { return NewWebBlocked(c) },
			map[string]webEntry{"/1.js": refused}, false, "not firewalled"},

		{"admin script", func(c webprobe.Client) probe.Check { return NewAdminOK(c) },
			map[string]webEntry{"/admin/js/other/app.min.js": {200, longScript, nil}}, true, "/*! AdminLTE app.js */"},
		{"admin script too small", func(c webprobe.Client) probe.Check { return NewAdminOK(c) },
			map[string]webEntry{"/admin/js/other/app.min.js": {200, strings.Repeat("x", 300), nil}}, false, "check lighttpd"},
		{"admin 500", func(c webprobe.Client) probe.Check { return NewAdminOK(c) },
			map[string]webEntry{"/admin/js/other/app.min.js": {500, "", nil}}, false, "status code 500"},

		{"api summary", func(c webprobe.Client) probe.Check { return NewAPI(c) },
			map[string]webEntry{"/admin/api.php?summary": {200, `{"domains_being_blocked":"1000","ads_percentage_today":"12.5"}`, nil}}, true, "Ad percentage today=12.5"},
		{"api empty json", func(c webprobe.Client) probe.Check { return NewAPI(c) },
			map[string]webEntry{"/admin/api.php?summary": {200, `[]`, nil}}, false, "Malformed json"},
		{"api missing field", func(c webprobe.Client) probe.Check { return NewAPI(c) },
			map[string]webEntry{"/admin/api.php?summary": {200, `{"status":"enabled"}`, nil}}, false, "no ads_percentage_today"},
		{"api html", func(c webprobe.Client) probe.Check { return NewAPI(c) },
			map[string]webEntry{"/admin/api.php?summary": {200, `<html>`, nil}}, false, "Malformed json"},
		{"api timeout", func(c webprobe.Client) probe.Check { return NewAPI(c) },
			map[string]webEntry{"/admin/api.php?summary": {err: context.DeadlineExceeded}}, false, "Error/Timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(tt.check(&fakeWeb{entries: tt.entries}))
			if out.Passed != tt.passed {
				t.Errorf("passed = %v, want %v (%s)", out.Passed, tt.passed, out.Detail)
			}
			if !strings.Contains(out.Detail, tt.detail) {
				t.Errorf("detail = %q, want it to contain %q", out.Detail, tt.detail)
			}
		})
	}
}

func TestAPISendsPiHoleHost(t *testing.T) {
	web := &fakeWeb{entries: map[string]webEntry{"/admin/api.php?summary": {200, `{"ads_percentage_today":1}`, nil}}}
	run(NewAPI(web))
	if got := web.hosts["/admin/api.php?summary"]; got != PiHoleName {
		t.Errorf("Host = %q, want %q", got, PiHoleName)
	}
}

func TestDNSStress(t *testing.T) {
	candidates := []string{"a.example", "b.example", "c.example", "d.example"}
	entries := map[string]dnsEntry{}
	for _, name := range candidates {
		entries[name] = dnsEntry{records: []string{"198.51.100.1"}}
	}

	c := NewDNSStress(&fakeDNS{entries: entries}, candidates)
	params := defaults(c)
	params["count"] = 3
	params["threads"] = 2
	params["timeout"] = time.Second

	out := c.Run(context.Background(), target, params)
	if !out.Passed || !strings.Contains(out.Detail, "good=3 bad=0") {
		t.Errorf("outcome = %+v", out)
	}

	summary := probe.FormatSummary(c, target, params)
	if summary != "DNS stress test with 3 queries over 2 threads" {
		t.Errorf("summary = %q", summary)
	}
}

func TestDNSStressAllFailing(t *testing.T) {
	c := NewDNSStress(&fakeDNS{}, []string{"a.example", "b.example"})
	out := c.Run(context.Background(), target, defaults(c))
	if out.Passed || !strings.Contains(out.Detail, "no successful samples") {
		t.Errorf("outcome = %+v", out)
	}
}

func TestDNSStressDefaultCandidates(t *testing.T) {
	c := NewDNSStress(&fakeDNS{}, nil)
	if len(c.candidates) < 100 {
		t.Errorf("built-in candidates = %d", len(c.candidates))
	}
}
