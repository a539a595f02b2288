package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) (*ChainLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	log, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log, path
}

func TestAppendAndVerify(t *testing.T) {
	ctx := context.Background()
	log, _ := openTestLog(t)

	first, err := log.Append(ctx, "transfer committed")
	require.NoError(t, err)
	assert.Equal(t, genesisHash, first.PreviousHash)

	second, err := log.Append(ctx, "balance queried")
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.PreviousHash)

	records, err := log.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NoError(t, Verify(records))
}

func TestChainSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	log, path := openTestLog(t)

	_, err := log.Append(ctx, "one")
	require.NoError(t, err)
	require.NoError(t, log.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.Append(ctx, "two")
	require.NoError(t, err)

	records, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NoError(t, Verify(records))
}

func TestVerifyDetectsTampering(t *testing.T) {
	ctx := context.Background()
	log, _ := openTestLog(t)

	for _, payload := range []string{"a", "b", "c"} {
		_, err := log.Append(ctx, payload)
		require.NoError(t, err)
	}

	records, err := log.Load(ctx)
	require.NoError(t, err)

	records[1].Payload = "tampered"
	assert.Error(t, Verify(records))
}

func TestVerifyEmptyChain(t *testing.T) {
	assert.NoError(t, Verify(nil))
}
