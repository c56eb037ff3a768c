package world

import "github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"

// Eligibility is the arena's compensation policy: living, non-observer
// candidates the requester's client was sent, restricted to opponents unless
// friendly fire is on.
func Eligibility(friendlyFire bool) lagcomp.Eligibility {
	return func(requester, candidate lagcomp.Actor, req lagcomp.Request) bool {
		if !candidate.Alive() || candidate.IsObserver() {
			return false
		}
		if req.Transmit != nil && !req.Transmit.Has(candidate.Slot()) {
			return false
		}
		if friendlyFire {
			return true
		}
		r, ok := requester.(*Actor)
		if !ok {
			return true
		}
		c, ok := candidate.(*Actor)
		if !ok {
			return true
		}
		return r.team != c.team
	}
}
