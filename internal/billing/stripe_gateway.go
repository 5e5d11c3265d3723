package billing

import (
	"context"
	"log/slog"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// StripeGateway implementa Gateway sobre a API da Stripe.
// O client é construído UMA vez no main e injetado — nada de chave global
// nem de instanciar client por requisição.
type StripeGateway struct {
	api           *client.API
	priceID       string
	siteURL       string
	webhookSecret string
}

// NewStripeGateway cria o gateway com a configuração do processo.
func NewStripeGateway(secretKey, webhookSecret, priceID, siteURL string) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, nil),
		priceID:       priceID,
		siteURL:       siteURL,
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CriarCheckoutSession(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.siteURL + "/dashboard?success=true"),
		CancelURL:  stripe.String(g.siteURL + "/dashboard?canceled=true"),
	}
	params.Context = ctx
	// O metadata carrega o vínculo com a conta; o webhook depende dele.
	params.AddMetadata("userId", userID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		slog.Error("Falha ao criar a sessão de checkout na Stripe", "error", err)
		return "", err
	}
	return sess.URL, nil
}

func (g *StripeGateway) CriarPortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.siteURL + "/dashboard/billing"),
	}
	params.Context = ctx

	sess, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		slog.Error("Falha ao criar a sessão do portal de billing", "error", err)
		return "", err
	}
	return sess.URL, nil
}

func (g *StripeGateway) ConstruirEvento(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, g.webhookSecret)
}
