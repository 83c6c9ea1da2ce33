package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// BookingPolicy tunes the participation workflow's reliability knobs without a
// redeploy: how long a payment-pending reservation may live before the sweeper
// expires it, and how often the sweeper runs.
type BookingPolicy struct {
	PendingPaymentTTL time.Duration `mapstructure:"pendingPaymentTtl"`
	SweepInterval     time.Duration `mapstructure:"sweepInterval"`
}

func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		PendingPaymentTTL: 30 * time.Minute,
		SweepInterval:     5 * time.Minute,
	}
}

// PolicyModule provides the hot-reloadable booking policy holder.
var PolicyModule = fx.Provide(NewBookingPolicyHolder)

type BookingPolicyHolder struct {
	current atomic.Value // holds BookingPolicy
}

func NewBookingPolicyHolder(log *zap.Logger) (*BookingPolicyHolder, error) {
	log = log.Named("booking.policy")
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/gatherly")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GATHERLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBookingPolicy()
		v.SetDefault("booking.pendingPaymentTtl", defaults.PendingPaymentTTL)
		v.SetDefault("booking.sweepInterval", defaults.SweepInterval)
	}

	var policy BookingPolicy
	if err := v.UnmarshalKey("booking", &policy); err != nil {
		return nil, err
	}
	if err := validateBookingPolicy(policy); err != nil {
		return nil, err
	}

	holder := &BookingPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BookingPolicy
		if err := v.UnmarshalKey("booking", &updated); err != nil {
			log.Error("reload failed", zap.Error(err))
			return
		}
		if err := validateBookingPolicy(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BookingPolicyHolder) Current() BookingPolicy {
	if h == nil {
		return DefaultBookingPolicy()
	}
	value, ok := h.current.Load().(BookingPolicy)
	if !ok {
		return DefaultBookingPolicy()
	}
	return value
}

func validateBookingPolicy(policy BookingPolicy) error {
	if policy.PendingPaymentTTL <= 0 {
		return errors.New("booking.pendingPaymentTtl must be positive")
	}
	if policy.SweepInterval <= 0 {
		return errors.New("booking.sweepInterval must be positive")
	}
	return nil
}
