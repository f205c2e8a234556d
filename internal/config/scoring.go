package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ScoringWeights are the per-unit contributions to a productivity score.
type ScoringWeights struct {
	MessageSent   float64 `mapstructure:"messageSent" json:"message_sent"`
	TaskCompleted float64 `mapstructure:"taskCompleted" json:"task_completed"`
	TaskCreated   float64 `mapstructure:"taskCreated" json:"task_created"`
	Document      float64 `mapstructure:"document" json:"document"`
	ActiveMinute  float64 `mapstructure:"activeMinute" json:"active_minute"`
	Session       float64 `mapstructure:"session" json:"session"`
}

type ScoringConfig struct {
	Weights  ScoringWeights `mapstructure:"weights"`
	MaxScore float64        `mapstructure:"maxScore"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: ScoringWeights{
			MessageSent:   0.5,
			TaskCompleted: 5,
			TaskCreated:   1,
			Document:      2,
			ActiveMinute:  0.1,
			Session:       1,
		},
		MaxScore: 100,
	}
}

type ScoringConfigHolder struct {
	current atomic.Value // holds ScoringConfig
}

// NewStaticScoringConfigHolder returns a holder that never reloads.
func NewStaticScoringConfigHolder(cfg ScoringConfig) *ScoringConfigHolder {
	holder := &ScoringConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewScoringConfigHolder(log *zap.Logger) (*ScoringConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.scoring")

	v := viper.New()

	v.SetConfigName("scoring")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/pulse/config")
	v.AddConfigPath("/etc/pulse")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultScoringConfig()
	v.SetDefault("scoring.weights.messageSent", defaults.Weights.MessageSent)
	v.SetDefault("scoring.weights.taskCompleted", defaults.Weights.TaskCompleted)
	v.SetDefault("scoring.weights.taskCreated", defaults.Weights.TaskCreated)
	v.SetDefault("scoring.weights.document", defaults.Weights.Document)
	v.SetDefault("scoring.weights.activeMinute", defaults.Weights.ActiveMinute)
	v.SetDefault("scoring.weights.session", defaults.Weights.Session)
	v.SetDefault("scoring.maxScore", defaults.MaxScore)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	cfg := readScoringConfig(v)
	if err := validateScoringConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticScoringConfigHolder(cfg)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := readScoringConfig(v)
		if err := validateScoringConfig(updated); err != nil {
			log.Warn("invalid scoring config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("scoring config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *ScoringConfigHolder) Get() ScoringConfig {
	return h.current.Load().(ScoringConfig)
}

// readScoringConfig reads leaf keys one by one so a partial file still
// picks up defaults for the keys it omits.
func readScoringConfig(v *viper.Viper) ScoringConfig {
	return ScoringConfig{
		Weights: ScoringWeights{
			MessageSent:   v.GetFloat64("scoring.weights.messageSent"),
			TaskCompleted: v.GetFloat64("scoring.weights.taskCompleted"),
			TaskCreated:   v.GetFloat64("scoring.weights.taskCreated"),
			Document:      v.GetFloat64("scoring.weights.document"),
			ActiveMinute:  v.GetFloat64("scoring.weights.activeMinute"),
			Session:       v.GetFloat64("scoring.weights.session"),
		},
		MaxScore: v.GetFloat64("scoring.maxScore"),
	}
}

func validateScoringConfig(cfg ScoringConfig) error {
	if cfg.MaxScore <= 0 {
		return errors.New("scoring.maxScore must be positive")
	}
	w := cfg.Weights
	for _, value := range []float64{w.MessageSent, w.TaskCompleted, w.TaskCreated, w.Document, w.ActiveMinute, w.Session} {
		if value < 0 {
			return errors.New("scoring.weights cannot be negative")
		}
	}
	return nil
}
