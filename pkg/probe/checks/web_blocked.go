package checks

import (
	"context"
	"net/http"
	"strings"

	"github.com/punasusi/pihole-probe/pkg/probe"
	"github.com/punasusi/pihole-probe/pkg/webprobe"
)

// BlockedMarker is served by the appliance in place of blocked scripts.
const BlockedMarker = `var x = "Pi-hole: A black hole for Internet advertisements."`

type WebBlocked struct {
	client webprobe.Client
}

func NewWebBlocked(client webprobe.Client) *WebBlocked {
	return &WebBlocked{client: client}
}

func (c *WebBlocked) ID() string {
	return "web-blocked"
}

func (c *WebBlocked) Rank() int {
	return 50
}

func (c *WebBlocked) Category() probe.Category {
	return probe.Mandatory
}

func (c *WebBlocked) Summary() string {
	return "Query a random js from site to see that it's return the static file"
}

func (c *WebBlocked) Parameters() []probe.Param {
	return []probe.Param{
		{Name: "path", Type: probe.ParamString, Default: "/1.js", Usage: "script path the blocking page is served for"},
	}
}

func (c *WebBlocked) Run(ctx context.Context, target probe.Target, params probe.Params) probe.Outcome {
	resp, err := c.client.Get(ctx, target.URL(params.String("path")), "")
	if err != nil {
		return probe.Fail("%s: %v", webFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		return probe.Fail("Got return http status code %d", resp.StatusCode)
	}
	body := string(resp.Body)
	if !strings.Contains(body, BlockedMarker) {
		return probe.Fail("Wrong answer from server, check lighttpd")
	}
	return probe.Pass("%s", strings.TrimSpace(body))
}
