package devops

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	clockcore "crewclock.app/crewclock/clock/core"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// EngineSettings is the operator-tunable part of the admission engine,
// stored as a yaml document in an SSM parameter. Zero values fall back to
// the compiled defaults.
type EngineSettings struct {
	MaxShiftHours         int     `yaml:"maxShiftHours"`
	AccuracyCeilingMeters float64 `yaml:"accuracyCeilingMeters"`
	SweepBatchSize        int     `yaml:"sweepBatchSize"`
	IdempotencyTTLHours   int     `yaml:"idempotencyTtlHours"`
}

var (
	engineOnce    sync.Once
	engineCfg     clockcore.Config
	engineLoadErr error
)

// LoadEngineConfig resolves the engine settings once per process. Local
// development skips SSM by setting CREWCLOCK_LOCAL_CONFIG to the yaml
// document directly.
func LoadEngineConfig(ctx context.Context) (clockcore.Config, error) {
	engineOnce.Do(func() {
		engineCfg = clockcore.DefaultConfig()

		raw, err := fetchEngineSettings(ctx)
		if err != nil {
			engineLoadErr = err
			return
		}
		if raw == "" {
			return
		}

		var settings EngineSettings
		if err := yaml.Unmarshal([]byte(raw), &settings); err != nil {
			engineLoadErr = fmt.Errorf("unmarshal yaml: %w", err)
			return
		}

		if settings.MaxShiftHours > 0 {
			engineCfg.MaxShift = time.Duration(settings.MaxShiftHours) * time.Hour
		}
		if settings.AccuracyCeilingMeters > 0 {
			engineCfg.AccuracyCeilingMeters = settings.AccuracyCeilingMeters
		}
		if settings.SweepBatchSize > 0 {
			engineCfg.SweepBatchSize = settings.SweepBatchSize
		}
		if settings.IdempotencyTTLHours > 0 {
			engineCfg.IdempotencyTTL = time.Duration(settings.IdempotencyTTLHours) * time.Hour
		}
	})

	return engineCfg, engineLoadErr
}

func fetchEngineSettings(ctx context.Context) (string, error) {
	if local := os.Getenv("CREWCLOCK_LOCAL_CONFIG"); local != "" {
		return local, nil
	}

	paramName := "crewclock-engine"

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(cfg)

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter: %w", err)
	}

	return *out.Parameter.Value, nil
}
