package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pakt/internal/adapters/telemetry"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
)

func TestNoOp(t *testing.T) {
	rec := telemetry.NewNoOp()

	ctx, vertex := rec.Record(context.Background(), "build demo-1.0.0")
	require.NotNil(t, vertex)
	assert.Equal(t, vertex, ports.VertexFromContext(ctx))

	n, err := vertex.Stdout().Write([]byte("ignored"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	vertex.Log(domain.LogLevelInfo, "ignored")
	vertex.Cached()
	vertex.Complete(nil)

	assert.NoError(t, rec.Close())
}
