package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFlashConfigDefaults(t *testing.T) {
	cfg, err := LoadFlashConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.Serial)
	assert.Empty(t, cfg.Product)
	assert.Equal(t, 5, cfg.SettleSeconds)
	assert.True(t, cfg.ShowProgress)
}
