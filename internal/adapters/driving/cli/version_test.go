package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"dev", "paperchat version dev"},
		{"1.4.0", "paperchat version 1.4.0"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			original := version
			version = tt.version
			defer func() { version = original }()

			f := &mockFactory{}
			setupTestFactory(t, f)

			out, err := executeCommand(t, context.Background(), "", "version")

			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
			assert.Zero(t, f.runtimeCalls)
		})
	}
}
