package attribution

import (
	"context"

	"github.com/ignite/roas-attribution/internal/domain"
)

// identityExpansionHops bounds the registry walk. Two hops covers the
// identities one cross-reference record away from the seeds without risking
// unbounded fan-out across a polluted registry.
const identityExpansionHops = 2

// ExpandIdentities discovers the closed set of identities linked to a
// customer. It seeds the funnel tool's user registry with both email
// variants, unions the identity arrays of the matched records, repeats the
// lookup once with the union as seeds, and partitions the result into
// email/IP subsets by format. The seed emails are always part of the final
// email subset, even when expansion returns nothing.
func (s *Service) ExpandIdentities(ctx context.Context, tenantID, email, lowerCaseEmail string) (domain.IdentitySet, error) {
	if email == "" {
		return domain.IdentitySet{}, missingParam("email")
	}
	if lowerCaseEmail == "" {
		return domain.IdentitySet{}, missingParam("lower_case_email")
	}
	if tenantID == "" {
		return domain.IdentitySet{}, missingParam("tenant_id")
	}

	seeds := []string{email, lowerCaseEmail}
	union := seeds
	for hop := 0; hop < identityExpansionHops; hop++ {
		records, err := s.funnel.UsersByIdentity(ctx, tenantID, union)
		if err != nil {
			// Registry unavailable: degrade to what we have so far.
			s.log(tenantID).Warn("identity expansion lookup failed", "hop", hop, "err", err)
			break
		}
		next := make([]string, 0, len(union))
		next = append(next, union...)
		for _, rec := range records {
			next = append(next, rec.IDs...)
		}
		union = domain.Dedup(next)
	}

	return domain.ClassifyIdentities(union, email, lowerCaseEmail), nil
}
