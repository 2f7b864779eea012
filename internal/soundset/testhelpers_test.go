package soundset

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestFile(tb testing.TB, path, content string) {
	tb.Helper()
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o644))
}
