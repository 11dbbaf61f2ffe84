package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitops-ml/kitops-go/internal/kit"
)

func TestParseKitFlags(t *testing.T) {
	got, err := parseKitFlags([]string{
		"plain-http",
		"tls_verify=false",
		"concurrency=4",
		"cert=a.pem",
		"cert=b.pem",
		"cert=c.pem",
		"proxy=http://user:pw@proxy:8080/?a=b",
	})
	require.NoError(t, err)

	assert.Equal(t, kit.Flags{
		"plain-http":  true,
		"tls_verify":  kit.ExplicitBool(false),
		"concurrency": "4",
		"cert":        []any{"a.pem", "b.pem", "c.pem"},
		"proxy":       "http://user:pw@proxy:8080/?a=b",
	}, got)
}

func TestParseKitFlags_Empty(t *testing.T) {
	got, err := parseKitFlags(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseKitFlags_MissingName(t *testing.T) {
	for _, raw := range []string{"", "=1", "--", " =x"} {
		_, err := parseKitFlags([]string{raw})
		assert.Error(t, err, "%q", raw)
	}
}
