package billing

import (
	"context"

	"github.com/stripe/stripe-go/v78"
)

// Gateway é a fronteira com o provedor de pagamentos. O serviço de
// assinaturas depende desta interface, não da Stripe diretamente — nos
// testes usamos um gateway falso.
type Gateway interface {
	// CriarCheckoutSession abre um checkout de assinatura e devolve a URL
	// de redirecionamento. O userID vai no metadata da sessão: é a única
	// forma de o webhook associar a assinatura externa à conta interna.
	CriarCheckoutSession(ctx context.Context, userID, email string) (string, error)

	// CriarPortalSession abre o portal de billing para um cliente que já
	// assina — evita uma segunda assinatura para a mesma conta.
	CriarPortalSession(ctx context.Context, customerID string) (string, error)

	// ConstruirEvento valida a assinatura do webhook sobre os bytes crus do
	// corpo e devolve o evento interpretado. É a única porta de entrada de
	// confiança do fluxo: sem assinatura válida, nada é processado.
	ConstruirEvento(payload []byte, signature string) (stripe.Event, error)
}
