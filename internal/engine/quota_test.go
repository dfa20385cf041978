package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowQuota_Check(t *testing.T) {
	q := NewRowQuota(2)
	assert.Equal(t, 2, q.MaxRows())
	assert.NoError(t, q.Check("t", 2))

	err := q.Check("t", 3)
	require.Error(t, err)
	assert.Equal(t, "query t exceeded row quota: 3 rows > 2 limit", err.Error())
	assert.True(t, IsRowsExceededError(err))
	assert.True(t, IsRowLimitError(err))
}

func TestRowQuota_Disabled(t *testing.T) {
	assert.NoError(t, NewRowQuota(0).Check("t", 1_000_000))
	assert.NoError(t, NewRowQuota(-1).Check("t", 1))
}

func TestRuntimeError_Message(t *testing.T) {
	err := newRuntimeError(ErrCodeQuery, "tok", "run statement", assert.AnError)
	assert.Equal(t, "QUERY_FAILED: run statement (token=tok): "+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, RuntimeErrorCode(""), ErrorCode(assert.AnError))
}
