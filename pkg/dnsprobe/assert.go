package dnsprobe

import (
	"context"
	"errors"
	"fmt"

	"github.com/miekg/dns"
)

// Resolver binds a Client to the server under test.
type Resolver struct {
	Client Client
	Server string
	TCP    bool
}

func (r Resolver) query(ctx context.Context, name string, qtype uint16) (*Answer, error) {
	return r.Client.Query(ctx, r.Server, name, qtype, r.TCP)
}

// NXDomain passes when the server answers NXDOMAIN or with no records. A
// query that gets no answer at all fails.
func (r Resolver) NXDomain(ctx context.Context, name string, qtype uint16) (bool, string) {
	answer, err := r.query(ctx, name, qtype)
	switch {
	case errors.Is(err, ErrNXDomain):
		return true, fmt.Sprintf("%s: %s == NXDOMAIN", typeName(qtype), name)
	case err != nil:
		return false, fmt.Sprintf("query failed: %v", err)
	case len(answer.Records) > 0:
		return false, fmt.Sprintf("%s: %s != NXDOMAIN == %s", typeName(qtype), name, answer.Records[0])
	default:
		return true, fmt.Sprintf("no records for %s", name)
	}
}

// Equals passes when any record for name equals match.
func (r Resolver) Equals(ctx context.Context, name, match string, qtype uint16) (bool, string) {
	answer, err := r.query(ctx, name, qtype)
	if err != nil {
		return false, fmt.Sprintf("query failed: %v", err)
	}
	for _, rec := range answer.Records {
		if rec == match {
			return true, fmt.Sprintf("%s: %s == %s", typeName(qtype), name, match)
		}
	}
	return false, fmt.Sprintf("%s: %s != %s", typeName(qtype), name, match)
}

// NotEquals passes when the server answers and no record for name equals
// match.
func (r Resolver) NotEquals(ctx context.Context, name, match string, qtype uint16) (bool, string) {
	answer, err := r.query(ctx, name, qtype)
	if err != nil {
		return false, fmt.Sprintf("query failed: %v", err)
	}
	for _, rec := range answer.Records {
		if rec == match {
			return false, fmt.Sprintf("%s: %s == %s", typeName(qtype), name, match)
		}
	}
	return true, fmt.Sprintf("%s: %s != %s", typeName(qtype), name, match)
}

func typeName(qtype uint16) string {
	if s, ok := dns.TypeToString[qtype]; ok {
		return s
	}
	return fmt.Sprintf("TYPE%d", qtype)
}
