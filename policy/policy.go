// Package policy implements evaluate(policy, revision, capsule): the
// visibility gate and required-checks-against-evidence validation that
// decide whether a revision is mergeable or publishable (spec §4.10).
// It follows the teacher's flat sentinel/structured-error convention
// (clawerr), since the teacher itself has no policy-evaluation concept
// to generalize from directly.
package policy

import (
	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/objects"
)

// Evaluate checks revision/capsule against policy's gates, in order:
// visibility first, then every required check, then the sensitive-paths
// check. It returns the first failure encountered, or nil if policy is
// satisfied.
//
// MinTrustScore is not compared against anything here; trust-score and
// ACL extensions are out of scope of the core.
func Evaluate(p *objects.Policy, revision *objects.Revision, c *objects.Capsule) error {
	if err := checkVisibility(p, c); err != nil {
		return err
	}
	if err := checkRequiredChecks(p, c); err != nil {
		return err
	}
	if err := checkSensitivePaths(p, revision); err != nil {
		return err
	}
	return nil
}

// checkVisibility implements spec §4.10's visibility rule: public
// always passes; private and restricted both require an encrypted
// private capsule section to be present (the core draws no further
// distinction between them — ACL/trust-tier enforcement for
// "restricted" is explicitly out of scope).
func checkVisibility(p *objects.Policy, c *objects.Capsule) error {
	switch p.Visibility {
	case objects.VisibilityPublic:
		return nil
	case objects.VisibilityPrivate, objects.VisibilityRestricted:
		if c == nil || len(c.EncryptedPrivate) == 0 {
			return clawerr.ErrVisibilityDenied
		}
		return nil
	default:
		return &clawerr.Violation{Msg: "unknown visibility level"}
	}
}

// checkRequiredChecks implements spec §4.10's required-checks rule:
// every name in policy.RequiredChecks must appear in the capsule's
// evidence with Passed == true.
func checkRequiredChecks(p *objects.Policy, c *objects.Capsule) error {
	if len(p.RequiredChecks) == 0 {
		return nil
	}
	passed := map[string]bool{}
	if c != nil {
		for _, e := range c.Public.Evidence {
			if e.Passed {
				passed[e.CheckName] = true
			}
		}
	}
	for _, name := range p.RequiredChecks {
		if !passed[name] {
			return &clawerr.MissingCheck{Name: name}
		}
	}
	return nil
}

// checkSensitivePaths does not inspect which paths the revision
// touches: the core has no
// concept of a review record beyond RequiredReviewers' presence on the
// policy itself, so this only enforces that a sensitive-path policy
// pairs with at least one configured reviewer, and leaves the actual
// attribution of review approval to higher layers.
func checkSensitivePaths(p *objects.Policy, revision *objects.Revision) error {
	if len(p.SensitivePaths) == 0 {
		return nil
	}
	if len(p.RequiredReviewers) == 0 {
		return &clawerr.Violation{Msg: "policy names sensitive paths but no required reviewers"}
	}
	return nil
}
