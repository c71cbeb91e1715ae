package flows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfs-platform/transaction-service/internal/domain"
)

func TestParse(t *testing.T) {
	data := []byte(`
flows:
  - name: destuffWarehouse
    steps:
      - code: create
        fromStatus: UNKNOWN
        toStatus: CHECK_IN
      - code: inspect
        fromStatus: CHECK_IN
        toStatus: HANDOVER
      - code: store
        fromStatus: HANDOVER
        toStatus: STORED
  - name: emptyFlow
    steps: []
`)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, "destuffWarehouse", parsed[0].Name)
	require.Len(t, parsed[0].Steps, 3)
	assert.Equal(t, domain.StepCreate, parsed[0].Steps[0].Code)
	assert.Equal(t, domain.PositionUnknown, parsed[0].Steps[0].FromStatus)
	assert.Equal(t, domain.PositionStored, parsed[0].Steps[2].ToStatus)

	assert.Empty(t, parsed[1].Steps)
}

func TestParseBrokenChain(t *testing.T) {
	data := []byte(`
flows:
  - name: broken
    steps:
      - code: create
        fromStatus: UNKNOWN
        toStatus: CHECK_IN
      - code: store
        fromStatus: HANDOVER
        toStatus: STORED
`)

	_, err := Parse(data)
	assert.ErrorIs(t, err, domain.ErrFlowChainBroken)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("flows: ["))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/flows.yaml")
	assert.Error(t, err)
}
