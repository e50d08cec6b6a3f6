package policy

import (
	"testing"

	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/objects"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePublicPasses(t *testing.T) {
	p := &objects.Policy{Visibility: objects.VisibilityPublic}
	require.NoError(t, Evaluate(p, &objects.Revision{}, nil))
}

func TestEvaluatePrivateRequiresEncryptedSection(t *testing.T) {
	p := &objects.Policy{Visibility: objects.VisibilityPrivate}

	err := Evaluate(p, &objects.Revision{}, &objects.Capsule{})
	require.ErrorIs(t, err, clawerr.ErrVisibilityDenied)

	c := &objects.Capsule{EncryptedPrivate: []byte("sealed")}
	require.NoError(t, Evaluate(p, &objects.Revision{}, c))
}

func TestEvaluateRequiredChecksMissing(t *testing.T) {
	p := &objects.Policy{RequiredChecks: []string{"lint", "tests"}}
	c := &objects.Capsule{Public: objects.CapsulePublicFields{
		Evidence: []objects.Evidence{{CheckName: "lint", Passed: true}},
	}}

	err := Evaluate(p, &objects.Revision{}, c)
	var missing *clawerr.MissingCheck
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "tests", missing.Name)
}

func TestEvaluateRequiredChecksAllPassed(t *testing.T) {
	p := &objects.Policy{RequiredChecks: []string{"lint", "tests"}}
	c := &objects.Capsule{Public: objects.CapsulePublicFields{
		Evidence: []objects.Evidence{
			{CheckName: "lint", Passed: true},
			{CheckName: "tests", Passed: true},
		},
	}}
	require.NoError(t, Evaluate(p, &objects.Revision{}, c))
}

func TestEvaluateRequiredChecksFailedEvidenceDoesNotCount(t *testing.T) {
	p := &objects.Policy{RequiredChecks: []string{"tests"}}
	c := &objects.Capsule{Public: objects.CapsulePublicFields{
		Evidence: []objects.Evidence{{CheckName: "tests", Passed: false}},
	}}

	err := Evaluate(p, &objects.Revision{}, c)
	var missing *clawerr.MissingCheck
	require.ErrorAs(t, err, &missing)
}

func TestEvaluateSensitivePathsRequireReviewers(t *testing.T) {
	p := &objects.Policy{SensitivePaths: []string{"infra/"}}
	err := Evaluate(p, &objects.Revision{}, nil)
	var violation *clawerr.Violation
	require.ErrorAs(t, err, &violation)

	p.RequiredReviewers = []string{"alice"}
	require.NoError(t, Evaluate(p, &objects.Revision{}, nil))
}
