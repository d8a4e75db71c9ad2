package memprobe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentUsageBytesReportsNonZero(t *testing.T) {
	p := New(nil)

	usage, err := p.CurrentUsageBytes(context.Background())
	require.NoError(t, err)
	assert.Greater(t, usage, uint64(0), "a running Go process always has resident memory")
}

func TestProcessHandleIsCached(t *testing.T) {
	p := New(nil)
	ctx := context.Background()

	_, err := p.CurrentUsageBytes(ctx)
	require.NoError(t, err)
	first := p.proc
	require.NotNil(t, first)

	_, err = p.CurrentUsageBytes(ctx)
	require.NoError(t, err)
	assert.Same(t, first, p.proc)
}
