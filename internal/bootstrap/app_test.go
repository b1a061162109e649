package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestAppGraphIsComplete(t *testing.T) {
	require.NoError(t, fx.ValidateApp(options()))
}
