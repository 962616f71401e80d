package vocabulary

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/champtc/opencti-sub001/errors"
)

func TestDeterministicID_Idempotent(t *testing.T) {
	key := map[string][]string{
		"name":       {"web-server-01"},
		"asset_type": {"hardware"},
	}

	id1, err := DeterministicID(TypeAsset, key)
	require.NoError(t, err)
	id2, err := DeterministicID(TypeAsset, key)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "identical natural keys must derive identical ids")
}

func TestDeterministicID_OrderInsensitive(t *testing.T) {
	// Multi-valued natural keys canonicalize by sorting, so supply order
	// does not change identity.
	id1, err := DeterministicID(TypeNote, map[string][]string{
		"content": {"a", "b"},
	})
	require.NoError(t, err)
	id2, err := DeterministicID(TypeNote, map[string][]string{
		"content": {"b", "a"},
	})
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestDeterministicID_DistinguishesTypeAndValues(t *testing.T) {
	key := map[string][]string{"name": {"shared"}}

	riskID, err := DeterministicID(TypeRisk, key)
	require.NoError(t, err)
	labelID, err := DeterministicID(TypeLabel, key)
	require.NoError(t, err)
	assert.NotEqual(t, riskID, labelID)

	otherID, err := DeterministicID(TypeRisk, map[string][]string{"name": {"other"}})
	require.NoError(t, err)
	assert.NotEqual(t, riskID, otherID)
}

func TestDeterministicID_EmptyKeyRejected(t *testing.T) {
	_, err := DeterministicID(TypeRisk, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoInputSupplied)
}

func TestIRI_RoundTrip(t *testing.T) {
	id, err := DeterministicID(TypeRisk, map[string][]string{"name": {"cve-2023-1234"}})
	require.NoError(t, err)

	iri := IRI("", TypeRisk, id)
	assert.Equal(t, fmt.Sprintf("%s#Risk-%s", DefaultNamespace, id), iri)

	et, parsedID, err := ParseIRI(iri)
	require.NoError(t, err)
	assert.Equal(t, TypeRisk, et)
	assert.Equal(t, id, parsedID)
}

func TestIRI_CustomNamespace(t *testing.T) {
	iri := IRI("https://example.org/graph", TypeLabel, "0c7e3a10-21a8-5dd6-91c5-0c8a54b1fd4e")
	assert.Equal(t, "https://example.org/graph#Label-0c7e3a10-21a8-5dd6-91c5-0c8a54b1fd4e", iri)
}

func TestParseIRI_Malformed(t *testing.T) {
	cases := []string{
		"",
		"no-fragment-at-all",
		"https://example.org/graph#Risk",
		"https://example.org/graph#Risk-",
		"https://example.org/graph#Risk-not-a-uuid",
		"https://example.org/graph#Widget-0c7e3a10-21a8-5dd6-91c5-0c8a54b1fd4e",
	}

	for _, iri := range cases {
		t.Run(iri, func(t *testing.T) {
			_, _, err := ParseIRI(iri)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidIdentifier)
		})
	}
}

func TestInferType_StrictAndFallback(t *testing.T) {
	iri := IRI("", TypeObservation, "0c7e3a10-21a8-5dd6-91c5-0c8a54b1fd4e")
	et, ok := InferType(iri)
	require.True(t, ok)
	assert.Equal(t, TypeObservation, et)

	// Legacy rows carry loosely-shaped references; the path component still
	// names the kind.
	et, ok = InferType("https://legacy.example.org/poamitem/4821")
	require.True(t, ok)
	assert.Equal(t, TypePOAMItem, et)

	_, ok = InferType("https://legacy.example.org/widget/77")
	assert.False(t, ok)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("0c7e3a10-21a8-5dd6-91c5-0c8a54b1fd4e"))

	err := ValidateID("not-a-uuid")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidIdentifier)
}
