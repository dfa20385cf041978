package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/pipeq/internal/expr"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Lambda parses lambda text such as "(o, c) => o.id == c.orderId" and
// fails the test on error.
func Lambda(t testing.TB, text string) *expr.Lambda {
	t.Helper()
	l, err := expr.ParseLambda(text)
	require.NoError(t, err, "parse %q", text)
	return l
}
