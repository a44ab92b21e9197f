package stress

import (
	"context"
	"fmt"

	"github.com/miekg/dns"

	"github.com/punasusi/pihole-probe/pkg/dnsprobe"
)

// DNSProbe returns a ProbeFunc that queries server for A records. A probe
// is good only when the server answers NOERROR with at least one record.
func DNSProbe(client dnsprobe.Client, server string) ProbeFunc {
	return func(ctx context.Context, name string, tcp bool) error {
		answer, err := client.Query(ctx, server, name, dns.TypeA, tcp)
		if err != nil {
			return err
		}
		if len(answer.Records) == 0 {
			return fmt.Errorf("no A records for %s", name)
		}
		return nil
	}
}
