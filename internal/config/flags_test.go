package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestBindAnnotatedFlags(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	flags := pflag.NewFlagSet("image", pflag.ContinueOnError)
	flags.String("base-path", "pub/media", "")
	flags.String("unbound", "", "")
	BindFlag(flags, "base-path", "image.base_path")

	require.NoError(t, flags.Parse([]string{"--base-path", "/srv/media", "--unbound", "x"}))
	require.NoError(t, BindAnnotatedFlags(flags))

	require.Equal(t, "/srv/media", viper.GetString("image.base_path"))
	require.Empty(t, viper.GetString("base_path"))
	require.False(t, viper.IsSet("unbound"))
}

func TestBindFlagUnknownPanics(t *testing.T) {
	flags := pflag.NewFlagSet("x", pflag.ContinueOnError)
	require.Panics(t, func() { BindFlag(flags, "missing", "key") })
}
