package ports

import (
	"context"
	"io"

	"go.trai.ch/pakt/internal/core/domain"
)

// Telemetry records progress for units of work (downloads, builds) as
// vertices.
//
//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks
type Telemetry interface {
	// Record starts recording a new vertex.
	Record(ctx context.Context, name string, opts ...VertexOption) (context.Context, Vertex)
	// Close flushes and closes the recording session.
	Close() error
}

// Vertex represents one unit of work in flight.
type Vertex interface {
	// Stdout returns a writer capturing the work's standard output.
	Stdout() io.Writer
	// Stderr returns a writer capturing the work's error output.
	Stderr() io.Writer
	// Log records a structured log message associated with this vertex.
	Log(level domain.LogLevel, msg string)
	// Complete marks the vertex finished, successfully or with an error.
	Complete(err error)
	// Cached marks the vertex as skipped due to a cache hit.
	Cached()
}

// VertexConfig holds configuration for a starting vertex.
type VertexConfig struct{}

// VertexOption is a functional option for configuring a vertex.
type VertexOption func(*VertexConfig)

type vertexContextKey struct{}

// ContextWithVertex attaches a vertex to the context.
func ContextWithVertex(ctx context.Context, v Vertex) context.Context {
	return context.WithValue(ctx, vertexContextKey{}, v)
}

// VertexFromContext returns the vertex attached to the context, or nil.
func VertexFromContext(ctx context.Context) Vertex {
	v, _ := ctx.Value(vertexContextKey{}).(Vertex)
	return v
}
