package log

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Once(t *testing.T) {
	first := NewLogger(Options{Env: "test", Level: "warn"})
	second := NewLogger(Options{Env: "test", Level: "debug"})

	require.Same(t, first, second)
	require.Same(t, first, Default())
	require.Equal(t, logrus.WarnLevel, first.GetLevel())
}
