package domain

import "time"

// Planos internos do FlowDesk.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Status de assinatura como reportados pela Stripe.
// Guardamos o valor reportado sem tradução: ele é a nossa "fonte da verdade".
const (
	SubscriptionStatusNone     = "none"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusUnpaid   = "unpaid"
)

// Perfil representa a linha de `profiles` de uma conta.
// É criado no cadastro (plan=free) e depois mutado apenas pelo fluxo de
// checkout/webhook da assinatura e pela tela de configurações.
type Perfil struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	NomeEmpresa string `json:"nome_empresa"`
	Telefone    string `json:"telefone"`

	Plan               string `json:"plan"`
	SubscriptionStatus string `json:"subscription_status"`

	// IDs emitidos pela Stripe. O customer ID é definido uma única vez e
	// nunca limpo; o subscription ID pode mudar se a assinatura for refeita.
	StripeCustomerID     string `json:"-"`
	StripeSubscriptionID string `json:"-"`

	// Vigência do período atual — só faz sentido quando plan=pro.
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`

	// Timestamp (unix) do último evento de assinatura aplicado.
	// Eventos mais antigos que ele chegaram fora de ordem e são ignorados.
	LastEventAt int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// AssinaturaUpdate é o estado-alvo completo que um evento
// customer.subscription.created/updated escreve no perfil. Sempre derivado
// do payload do evento, nunca do estado anterior.
type AssinaturaUpdate struct {
	Plan              string
	Status            string
	SubscriptionID    string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	EventAt           int64
}

// PlanFromStatus deriva o plano interno a partir do status da Stripe.
// past_due mantém pro (período de carência); qualquer status desconhecido
// cai em free, então a função é total.
func PlanFromStatus(status string) string {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue:
		return PlanPro
	default:
		return PlanFree
	}
}
