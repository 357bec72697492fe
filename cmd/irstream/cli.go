package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "IRSTREAM"

// opt is a single command-line option that can also be set from the environment.
type opt struct {
	destP any // pointer to the destination
	flag  string
	dflt  any
	desc  string
}

func newOpt(destP any, flag string, dflt any, desc string) opt {
	return opt{destP: destP, flag: flag, dflt: dflt, desc: desc}
}

// bindOptions adds opts to the command's flags and registers them with v, so that
// IRSTREAM_<FLAG> environment variables provide the defaults.
func bindOptions(v *viper.Viper, cmd *cobra.Command, persistent bool, opts []opt) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}

	for _, o := range opts {
		switch destP := o.destP.(type) {
		case *string:
			var d string
			if o.dflt != nil {
				d = o.dflt.(string)
			}
			flags.StringVar(destP, o.flag, d, o.desc)
			mustBindPFlag(v, o.flag, flags.Lookup(o.flag))
			*destP = v.GetString(o.flag)
		case *int:
			var d int
			if o.dflt != nil {
				d = o.dflt.(int)
			}
			flags.IntVar(destP, o.flag, d, o.desc)
			mustBindPFlag(v, o.flag, flags.Lookup(o.flag))
			*destP = v.GetInt(o.flag)
		case *int64:
			var d int64
			if o.dflt != nil {
				d = o.dflt.(int64)
			}
			flags.Int64Var(destP, o.flag, d, o.desc)
			mustBindPFlag(v, o.flag, flags.Lookup(o.flag))
			*destP = v.GetInt64(o.flag)
		case *bool:
			var d bool
			if o.dflt != nil {
				d = o.dflt.(bool)
			}
			flags.BoolVar(destP, o.flag, d, o.desc)
			mustBindPFlag(v, o.flag, flags.Lookup(o.flag))
			*destP = v.GetBool(o.flag)
		case *time.Duration:
			var d time.Duration
			if o.dflt != nil {
				d = o.dflt.(time.Duration)
			}
			flags.DurationVar(destP, o.flag, d, o.desc)
			mustBindPFlag(v, o.flag, flags.Lookup(o.flag))
			*destP = v.GetDuration(o.flag)
		case *[]string:
			var d []string
			if o.dflt != nil {
				d = o.dflt.([]string)
			}
			flags.StringSliceVar(destP, o.flag, d, o.desc)
			mustBindPFlag(v, o.flag, flags.Lookup(o.flag))
			*destP = v.GetStringSlice(o.flag)
		default:
			panic(fmt.Errorf("unknown destination type %T for flag %q", o.destP, o.flag))
		}
	}
}

func mustBindPFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// newViper returns a viper instance reading IRSTREAM_ prefixed environment variables.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// This normalizes "-" to an underscore in env names.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	return v
}

// newLogger builds a console logger writing to w at the given level.
func newLogger(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("unknown log level %q; supported levels are debug, info, warn, error", level)
	}

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format(time.RFC3339))
	}
	config.EncodeDuration = func(d time.Duration, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(d.String())
	}

	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(config),
		zapcore.Lock(zapcore.AddSync(w)),
		lvl,
	)), nil
}
