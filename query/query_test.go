package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFilter_TriesLongOperatorsFirst(t *testing.T) {
	f, ok := ParseFilter("average>=5")
	assert.True(t, ok)
	assert.Equal(t, "average", f.Field)
	assert.Equal(t, OpGte, f.Op)
	assert.Equal(t, 5.0, f.Value)

	f, ok = ParseFilter("average<=5")
	assert.True(t, ok)
	assert.Equal(t, OpLte, f.Op)

	f, ok = ParseFilter("average>5")
	assert.True(t, ok)
	assert.Equal(t, OpGt, f.Op)

	f, ok = ParseFilter("average<5")
	assert.True(t, ok)
	assert.Equal(t, OpLt, f.Op)

	f, ok = ParseFilter("average=5")
	assert.True(t, ok)
	assert.Equal(t, OpEq, f.Op)
}

func TestParseFilter_StringValueOnlySupportsEquality(t *testing.T) {
	f, ok := ParseFilter("label=warm")
	assert.True(t, ok)
	assert.Equal(t, "warm", f.Raw)

	_, ok = ParseFilter("label>warm")
	assert.False(t, ok)
}

func TestParseFilter_RejectsMissingFieldOrValue(t *testing.T) {
	_, ok := ParseFilter("=5")
	assert.False(t, ok)

	_, ok = ParseFilter("average=")
	assert.False(t, ok)

	_, ok = ParseFilter("no operator here")
	assert.False(t, ok)
}

func TestQuery_ParseFilters_FailsWholeSetOnOneBadFilter(t *testing.T) {
	q := Query{FeatureFilters: []string{"average>=5", "garbage"}}
	_, ok := q.ParseFilters()
	assert.False(t, ok)
}

func TestQuery_ParseFilters_EmptyIsOK(t *testing.T) {
	q := Query{}
	filters, ok := q.ParseFilters()
	assert.True(t, ok)
	assert.Empty(t, filters)
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "=", OpEq.String())
	assert.Equal(t, ">=", OpGte.String())
	assert.Equal(t, "<=", OpLte.String())
	assert.Equal(t, ">", OpGt.String())
	assert.Equal(t, "<", OpLt.String())
}
