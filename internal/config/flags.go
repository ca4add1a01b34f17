package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const flagKeyAnnotation = "agento_config_key"

// BindFlag marks the flag name as the command line source of the config key.
// Two commands may map flags of the same name onto different keys; only the
// flags of the command being run are bound, by BindAnnotatedFlags.
func BindFlag(flags *pflag.FlagSet, name, key string) {
	if err := flags.SetAnnotation(name, flagKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

func BindAnnotatedFlags(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[flagKeyAnnotation]
		if err != nil || len(keys) == 0 {
			return
		}
		err = viper.BindPFlag(keys[0], f)
	})

	return err
}
