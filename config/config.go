package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/kinematics"
	"github.com/binzume/motiontrace/reduce"
	"github.com/spf13/viper"
)

const (
	ConfigName = "motiontrace"
	EnvPrefix  = "MOTIONTRACE"
)

type ReduceConfig struct {
	MoveBig       float64 `mapstructure:"moveBig"`
	MoveSmall     float64 `mapstructure:"moveSmall"`
	RotationBig   float64 `mapstructure:"rotationBig"` // degrees
	RotationSmall float64 `mapstructure:"rotationSmall"`
	MorphBig      float64 `mapstructure:"morphBig"`
	MorphSmall    float64 `mapstructure:"morphSmall"`
}

type IkConfig struct {
	Tolerance float64 `mapstructure:"tolerance"`
	// MaxLoop caps the loop count of every IK bone. 0 keeps the model's value.
	MaxLoop int `mapstructure:"maxLoop"`
}

type OutputConfig struct {
	FullSuffix   string `mapstructure:"fullSuffix"`
	ReduceSuffix string `mapstructure:"reduceSuffix"`
	ModelName    string `mapstructure:"modelName"`
	Preview      bool   `mapstructure:"preview"`
}

type SentinelConfig struct {
	EndOfFrame string `mapstructure:"endOfFrame"`
	Complete   string `mapstructure:"complete"`
}

// Config is the process configuration of the trace pipeline.
type Config struct {
	LogLevel string         `mapstructure:"logLevel"`
	Workers  int            `mapstructure:"workers"`
	Profile  string         `mapstructure:"profile"`
	Reduce   ReduceConfig   `mapstructure:"reduce"`
	Ik       IkConfig       `mapstructure:"ik"`
	Output   OutputConfig   `mapstructure:"output"`
	Sentinel SentinelConfig `mapstructure:"sentinel"`
}

func setDefaults(v *viper.Viper) {
	d := reduce.DefaultOptions()
	v.SetDefault("logLevel", "info")
	v.SetDefault("workers", 0)
	v.SetDefault("profile", "")

	v.SetDefault("reduce.moveBig", d.MoveBig)
	v.SetDefault("reduce.moveSmall", d.MoveSmall)
	v.SetDefault("reduce.rotationBig", geom.RadToDeg(d.RotationBig))
	v.SetDefault("reduce.rotationSmall", geom.RadToDeg(d.RotationSmall))
	v.SetDefault("reduce.morphBig", d.MorphBig)
	v.SetDefault("reduce.morphSmall", d.MorphSmall)

	v.SetDefault("ik.tolerance", kinematics.DefaultTolerance)
	v.SetDefault("ik.maxLoop", 0)

	v.SetDefault("output.fullSuffix", "_full.vmd")
	v.SetDefault("output.reduceSuffix", "_reduce.vmd")
	v.SetDefault("output.modelName", "")
	v.SetDefault("output.preview", false)

	v.SetDefault("sentinel.endOfFrame", "end_of_frame")
	v.SetDefault("sentinel.complete", "complete")
}

// Load reads motiontrace.yaml from configDir if present and applies
// MOTIONTRACE_* environment overrides on top of the defaults.
// An empty configDir skips the file.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configDir != "" {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return &c, nil
}

// ReduceOptions converts the thresholds to reduce.Options.
func (c *Config) ReduceOptions() reduce.Options {
	return reduce.Options{
		MoveBig:       c.Reduce.MoveBig,
		MoveSmall:     c.Reduce.MoveSmall,
		RotationBig:   geom.DegToRad(c.Reduce.RotationBig),
		RotationSmall: geom.DegToRad(c.Reduce.RotationSmall),
		MorphBig:      c.Reduce.MorphBig,
		MorphSmall:    c.Reduce.MorphSmall,
		Workers:       c.Workers,
	}
}
