package probe

import (
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/punasusi/pihole-probe/pkg/probe/config"
)

func TestRegistryOrdering(t *testing.T) {
	reg, err := NewRegistry(
		&mockCheck{id: "web", rank: 50},
		&mockCheck{id: "dns-b", rank: 4},
		&mockCheck{id: "dns-a", rank: 4},
		&mockCheck{id: "ping", rank: 1, category: Optional},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	var ids []string
	for _, c := range reg.Checks() {
		ids = append(ids, c.ID())
	}
	want := "ping,dns-a,dns-b,web"
	if got := strings.Join(ids, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
	if _, ok := reg.Lookup("dns-a"); !ok {
		t.Error("dns-a should be found")
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Error("missing should not be found")
	}
}

func TestRegistryChecksReturnsCopy(t *testing.T) {
	reg := MustNewRegistry(&mockCheck{id: "a", rank: 1}, &mockCheck{id: "b", rank: 2})
	list := reg.Checks()
	list[0] = nil
	if reg.Checks()[0] == nil {
		t.Error("Checks() must not expose internal storage")
	}
}

func TestRegistryRejectsInvalidChecks(t *testing.T) {
	tests := []struct {
		name   string
		checks []Check
		errMsg string
	}{
		{
			name:   "duplicate id",
			checks: []Check{&mockCheck{id: "dup", rank: 1}, &mockCheck{id: "dup", rank: 2}},
			errMsg: "duplicate check id",
		},
		{
			name:   "empty id",
			checks: []Check{&mockCheck{rank: 1}},
			errMsg: "empty id",
		},
		{
			name:   "not kebab case",
			checks: []Check{&mockCheck{id: "dns_self", rank: 1}},
			errMsg: "kebab-case",
		},
		{
			name: "default type mismatch",
			checks: []Check{&mockCheck{id: "x", rank: 1, params: []Param{
				{Name: "count", Type: ParamInt, Default: "ten"},
			}}},
			errMsg: "default of count",
		},
		{
			name: "duplicate parameter",
			checks: []Check{&mockCheck{id: "x", rank: 1, params: []Param{
				{Name: "count", Type: ParamInt, Default: 1},
				{Name: "count", Type: ParamInt, Default: 2},
			}}},
			errMsg: "duplicate parameter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.checks...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q should contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestMustNewRegistryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustNewRegistry(&mockCheck{id: "dup"}, &mockCheck{id: "dup"})
}

func TestParamCoerce(t *testing.T) {
	tests := []struct {
		name    string
		param   Param
		in      any
		want    any
		wantErr bool
	}{
		{"int from int", Param{Name: "n", Type: ParamInt}, 5, 5, false},
		{"int from yaml float", Param{Name: "n", Type: ParamInt}, 5.0, 5, false},
		{"int from fraction", Param{Name: "n", Type: ParamInt}, 5.5, nil, true},
		{"int from string", Param{Name: "n", Type: ParamInt}, "12", 12, false},
		{"int from junk", Param{Name: "n", Type: ParamInt}, "x", nil, true},
		{"int from large uint64", Param{Name: "n", Type: ParamInt}, uint64(1 << 63), nil, true},
		{"int from uint64", Param{Name: "n", Type: ParamInt}, uint64(7), 7, false},
		{"int from huge float", Param{Name: "n", Type: ParamInt}, 1e30, nil, true},
		{"int from huge negative float", Param{Name: "n", Type: ParamInt}, -1e30, nil, true},
		{"float from int", Param{Name: "f", Type: ParamFloat}, 1, 1.0, false},
		{"float from string", Param{Name: "f", Type: ParamFloat}, "0.25", 0.25, false},
		{"string", Param{Name: "s", Type: ParamString}, "abc", "abc", false},
		{"string from int", Param{Name: "s", Type: ParamString}, 3, nil, true},
		{"duration from string", Param{Name: "d", Type: ParamDuration}, "1.5s", 1500 * time.Millisecond, false},
		{"duration from seconds", Param{Name: "d", Type: ParamDuration}, 2, 2 * time.Second, false},
		{"duration native", Param{Name: "d", Type: ParamDuration}, time.Minute, time.Minute, false},
		{"duration from junk", Param{Name: "d", Type: ParamDuration}, "soon", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.param.Coerce(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Coerce(%v) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestValidateOverrides(t *testing.T) {
	reg := MustNewRegistry(
		&mockCheck{id: "dns-stress", rank: 90, category: Optional, params: []Param{
			{Name: "count", Type: ParamInt, Default: 100},
		}},
		&mockCheck{id: "dns-self", rank: 4},
	)

	good := runConfig(config.Overrides{
		Enabled: map[string]bool{"dns-stress": true, "dns-self": false},
		Params:  map[string]map[string]any{"dns-stress": {"count": 5}},
	})
	if err := ValidateOverrides(reg, good); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := runConfig(config.Overrides{
		Enabled: map[string]bool{"dns-unknown": true},
		Params: map[string]map[string]any{
			"dns-stress": {"count": "lots", "colour": "red"},
			"nope":       {"x": 1},
		},
	})
	err := ValidateOverrides(reg, bad)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{`unknown check "dns-unknown"`, `no parameter "colour"`, "not an integer", `unknown check "nope"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should contain %q", err, want)
		}
	}
}

func TestNewTarget(t *testing.T) {
	tests := []struct {
		addr    string
		dnsPort int
		http    int
		wantDNS string
		wantWeb string
	}{
		{"192.0.2.1", 53, 80, "192.0.2.1:53", "http://192.0.2.1"},
		{"192.0.2.1", 0, 0, "192.0.2.1:53", "http://192.0.2.1"},
		{"127.0.0.1", 5353, 8080, "127.0.0.1:5353", "http://127.0.0.1:8080"},
		{"2001:db8::1", 53, 80, "[2001:db8::1]:53", "http://[2001:db8::1]"},
		{"2001:db8::1", 53, 8080, "[2001:db8::1]:53", "http://[2001:db8::1]:8080"},
		{"fe80::1%eth0", 53, 80, "[fe80::1%eth0]:53", "http://[fe80::1%25eth0]"},
	}

	for _, tt := range tests {
		target := NewTarget(netip.MustParseAddr(tt.addr), tt.dnsPort, tt.http)
		if target.DNSServer != tt.wantDNS {
			t.Errorf("%s: DNSServer = %s, want %s", tt.addr, target.DNSServer, tt.wantDNS)
		}
		if target.WebBase != tt.wantWeb {
			t.Errorf("%s: WebBase = %s, want %s", tt.addr, target.WebBase, tt.wantWeb)
		}
	}

	target := NewTarget(netip.MustParseAddr("192.0.2.1"), 53, 80)
	if got := target.URL("admin/api.php?summary"); got != "http://192.0.2.1/admin/api.php?summary" {
		t.Errorf("URL = %s", got)
	}
}
