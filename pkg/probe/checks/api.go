package checks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/punasusi/pihole-probe/pkg/probe"
	"github.com/punasusi/pihole-probe/pkg/webprobe"
)

type API struct {
	client webprobe.Client
}

func NewAPI(client webprobe.Client) *API {
	return &API{client: client}
}

func (c *API) ID() string {
	return "api"
}

func (c *API) Rank() int {
	return 55
}

func (c *API) Category() probe.Category {
	return probe.Mandatory
}

func (c *API) Summary() string {
	return "Test /admin/api.php to make sure it's responding"
}

func (c *API) Parameters() []probe.Param {
	return nil
}

func (c *API) Run(ctx context.Context, target probe.Target, _ probe.Params) probe.Outcome {
	resp, err := c.client.Get(ctx, target.URL("/admin/api.php?summary"), PiHoleName)
	if err != nil {
		return probe.Fail("%s: %v", webFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		return probe.Fail("Got return http status code %d", resp.StatusCode)
	}

	var summary map[string]any
	if err := json.Unmarshal(resp.Body, &summary); err != nil || len(summary) == 0 {
		return probe.Fail("Malformed json %s", resp.Body)
	}
	ads, ok := summary["ads_percentage_today"]
	if !ok {
		return probe.Fail("Malformed json, no ads_percentage_today in %s", resp.Body)
	}
	return probe.Pass("Ad percentage today=%v", ads)
}
