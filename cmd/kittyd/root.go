package main

import (
	"errors"
	"strings"

	"github.com/arkade-os/kittyd/internal/config"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const configFileName = "kittyd"

// EnvReplacer replaces `-` to `_`.
// This is used to map flag like `--my-param` to environment variables like `MY_PARAM`.
var envReplacer = strings.NewReplacer("-", "_")

func init() {
	viper.SetEnvPrefix("KITTYD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(envReplacer)
}

// loadConfigFile reads the optional kittyd.{json,yaml,toml} file from the
// datadir and uses its values for the global flags not set on the command
// line or through the environment.
func loadConfigFile(ctx *cli.Context) error {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.AddConfigPath(ctx.String(config.Datadir.Name))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	for _, flag := range config.Flags {
		name := flag.Names()[0]
		if flag.IsSet() || !v.IsSet(name) {
			continue
		}
		if err := ctx.Set(name, v.GetString(name)); err != nil {
			return err
		}
	}
	return nil
}
