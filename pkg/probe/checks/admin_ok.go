package checks

import (
	"context"
	"net/http"
	"strings"

	"github.com/punasusi/pihole-probe/pkg/probe"
	"github.com/punasusi/pihole-probe/pkg/webprobe"
)

// minAdminScriptSize is well below the size of the real minified bundle.
const minAdminScriptSize = 300

type AdminOK struct {
	client webprobe.Client
}

func NewAdminOK(client webprobe.Client) *AdminOK {
	return &AdminOK{client: client}
}

func (c *AdminOK) ID() string {
	return "admin-ok"
}

func (c *AdminOK) Rank() int {
	return 51
}

func (c *AdminOK) Category() probe.Category {
	return probe.Mandatory
}

func (c *AdminOK) Summary() string {
	return "Query admin/js/other/app.min.js and make sure it's reasonable size"
}

func (c *AdminOK) Parameters() []probe.Param {
	return nil
}

func (c *AdminOK) Run(ctx context.Context, target probe.Target, _ probe.Params) probe.Outcome {
	resp, err := c.client.Get(ctx, target.URL("/admin/js/other/app.min.js"), "")
	if err != nil {
		return probe.Fail("%s: %v", webFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		return probe.Fail("Got return http status code %d", resp.StatusCode)
	}
	if len(resp.Body) <= minAdminScriptSize {
		return probe.Fail("Wrong answer from server, check lighttpd")
	}
	first, _, _ := strings.Cut(string(resp.Body), "\n")
	return probe.Pass("%s", strings.TrimSpace(first))
}
