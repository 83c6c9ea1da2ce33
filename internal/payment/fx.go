package payment

import (
	"go.uber.org/fx"

	"github.com/gatherly/gatherly/internal/config"
	"github.com/gatherly/gatherly/internal/payment/adapters/stripe"
	"github.com/gatherly/gatherly/internal/payment/receipt"
	"github.com/gatherly/gatherly/internal/payment/repository"
	"github.com/gatherly/gatherly/internal/payment/service"
)

var Module = fx.Module("payment.service",
	fx.Provide(func(cfg config.Config) *stripe.Adapter {
		return stripe.NewAdapter(cfg.StripeWebhookSecret)
	}),
	fx.Provide(stripe.NewCheckoutClient),
	fx.Provide(receipt.NewGenerator),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
