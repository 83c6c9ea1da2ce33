// Package sweeper runs the background loop that expires payment-pending
// reservations past their TTL.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gatherly/gatherly/internal/config"
	participationdomain "github.com/gatherly/gatherly/internal/participation/domain"
)

var Module = fx.Module("sweeper",
	fx.Invoke(Run),
)

type Params struct {
	fx.In

	LC            fx.Lifecycle
	Log           *zap.Logger
	Participation participationdomain.Service
	Policy        *config.BookingPolicyHolder
}

// Run starts the sweep loop on application start and stops it on shutdown.
// The interval is re-read every tick so policy reloads take effect without
// a restart.
func Run(p Params) {
	log := p.Log.Named("sweeper")
	stop := make(chan struct{})
	done := make(chan struct{})

	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go loop(log, p.Participation, p.Policy, stop, done)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func loop(
	log *zap.Logger,
	participation participationdomain.Service,
	policy *config.BookingPolicyHolder,
	stop <-chan struct{},
	done chan<- struct{},
) {
	defer close(done)

	timer := time.NewTimer(policy.Current().SweepInterval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := participation.ExpireStale(ctx); err != nil {
				log.Error("sweep failed", zap.Error(err))
			}
			cancel()
			timer.Reset(policy.Current().SweepInterval)
		}
	}
}
