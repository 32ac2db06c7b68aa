package hardware

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures need a unix shell")
	}

	path := filepath.Join(t.TempDir(), "llama-server")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))

	return path
}

func TestFlashAttentionSupported(t *testing.T) {
	cases := []struct {
		desc string
		body string
		want bool
	}{
		{
			desc: "flag advertised",
			body: `echo "--flash-attn          enable Flash Attention (default: disabled)"`,
			want: true,
		},
		{
			desc: "flag advertised on stderr",
			body: `echo "usage: --flash-attn" 1>&2`,
			want: true,
		},
		{
			desc: "flag absent",
			body: `echo "--ctx-size N   size of the prompt context"`,
			want: false,
		},
		{
			desc: "binary fails",
			body: `exit 3`,
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			binary := writeScript(t, tc.body)
			assert.Equal(t, tc.want, FlashAttentionSupported(context.Background(), binary))
		})
	}
}

func TestFlashAttentionSupportedMissingBinary(t *testing.T) {
	assert.False(t, FlashAttentionSupported(context.Background(), filepath.Join(t.TempDir(), "nope")))
}
