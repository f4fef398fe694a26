package ledger

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algo-transfers/internal/ledger/ledgertest"
	"algo-transfers/internal/metrics"
)

func TestInstrumented_PassesThroughAndObserves(t *testing.T) {
	fake := ledgertest.New()
	m := metrics.New()
	client := NewInstrumented(fake, m)
	ctx := context.Background()

	round, err := client.CurrentRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, fake.Round(), round)

	fake.FailMethod(ledgertest.MethodPendingInfo, stderrors.New("node down"))
	_, err = client.PendingInfo(ctx, "X")
	assert.EqualError(t, err, "node down")

	assert.Equal(t, 1, fake.Calls(ledgertest.MethodCurrentRound))
	assert.Equal(t, 1, fake.Calls(ledgertest.MethodPendingInfo))

	count, err := testutil.GatherAndCount(m.Registry(), "algo_transfers_ledger_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
