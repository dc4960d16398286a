package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type policy string

const (
	policyIgnore policy = "ignore"
	policyWarn   policy = "warn"
	policyStrict policy = "strict"
)

func newPolicyNormalizer() *Normalizer[policy] {
	return NewNormalizer(map[string]policy{
		"ignore": policyIgnore,
		"warn":   policyWarn,
		"strict": policyStrict,
	}, policyWarn)
}

func TestNormalize(t *testing.T) {
	n := newPolicyNormalizer()

	assert.Equal(t, policyStrict, n.Normalize("strict"))
	assert.Equal(t, policyStrict, n.Normalize("  STRICT "))
	assert.Equal(t, policyIgnore, n.Normalize("Ignore"))
	assert.Equal(t, policyWarn, n.Normalize("loud"), "unknown falls back to default")
	assert.Equal(t, policyWarn, n.Normalize(""))
}

func TestNormalizeWithError(t *testing.T) {
	n := newPolicyNormalizer()

	got, err := n.NormalizeWithError(" warn")
	require.NoError(t, err)
	assert.Equal(t, policyWarn, got)

	_, err = n.NormalizeWithError("fatal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[ignore strict warn]")
}

func TestValidKeysIsACopy(t *testing.T) {
	n := newPolicyNormalizer()
	keys := n.ValidKeys()
	keys[0] = "mutated"
	assert.Equal(t, []string{"ignore", "strict", "warn"}, n.ValidKeys())
}
