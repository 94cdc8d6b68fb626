package registry

import "agent-advisor/internal/domain"

// Domain-exact matches dominate any number of capability overlaps.
const domainMatchWeight = 10

// Score rates one descriptor against a request's domain and tag set:
// 10 for an exact domain match plus 1 per overlapping capability tag.
// Pure function; inputs must already be normalized.
func Score(desc domain.AgentDescriptor, reqDomain string, reqTags map[string]struct{}) int {
	score := 0
	if reqDomain != "" && desc.Domain == reqDomain {
		score += domainMatchWeight
	}
	for tag := range reqTags {
		if _, ok := desc.Capabilities[tag]; ok {
			score++
		}
	}
	return score
}
