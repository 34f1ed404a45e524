package main

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soothsayer-db/soothsayer/internal/cli"
)

func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	v.SetEnvPrefix("soothsayer")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	return v, nil
}

func main() {
	flags := newFlagSet()
	_ = flags.Parse(os.Args[1:])

	v, err := newViper(flags)
	if err != nil {
		cli.Usage(os.Stderr)
		os.Exit(2)
	}
	cli.Main(Version, v, flags.Args())
}
