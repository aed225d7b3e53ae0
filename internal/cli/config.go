package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that configure the CLI.
const EnvPrefix = "JSONQUERY"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// resolve binds the parsed flags of cmd and reads the config file, then
// copies the effective values back into the options.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if o.v == nil {
		o.v = newViper()
	}
	if err := o.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if cfg := o.v.GetString("config"); cfg != "" {
		o.v.SetConfigFile(cfg)
		if err := o.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfg, err)
		}
	}

	o.ConfigFile = o.v.GetString("config")
	o.Verbose = o.v.GetBool("verbose")
	o.Format = o.v.GetString("format")
	o.Database = o.v.GetString("db")
	o.Driver = o.v.GetString("driver")
	o.Schema = o.v.GetString("schema")
	return nil
}

// lookup returns the effective value of a command-local flag.
func (o *RootOptions) lookup(key string) string {
	if o.v == nil {
		return ""
	}
	return o.v.GetString(key)
}

// newLogger builds the text handler on stderr; verbose switches to Debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
