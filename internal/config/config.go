package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config concentra toda a configuração da API, carregada do ambiente.
// Os clientes externos (Stripe, banco) são construídos UMA vez no main a
// partir daqui e injetados nas camadas — nada de estado global mutável.
type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./flowdesk.db"`

	// URL pública do frontend, usada nas URLs de retorno do checkout.
	SiteURL            string   `env:"SITE_URL" envDefault:"http://localhost:3000"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
	StripePriceID       string `env:"STRIPE_PRICE_ID,required"`

	// Política de falha de pagamento: com carência (true), invoice.payment_failed
	// só marca past_due e espera o evento de assinatura decidir o plano;
	// sem carência (false), o plano é rebaixado para free na hora.
	GracePeriodOnPaymentFailure bool `env:"BILLING_GRACE_PERIOD_ON_PAYMENT_FAILURE" envDefault:"true"`
}

// Load lê o .env (se existir) e faz o parse das variáveis de ambiente.
func Load() (*Config, error) {
	// O .env é opcional: em produção as variáveis vêm do ambiente mesmo.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
