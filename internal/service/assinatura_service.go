package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/flowdeskhq/flowdesk/internal/billing"
	"github.com/flowdeskhq/flowdesk/internal/domain"
	"github.com/flowdeskhq/flowdesk/internal/repository"
)

// AssinaturaService concentra o fluxo de upgrade: a iniciação do checkout e
// a máquina de estados do webhook que reconcilia o perfil com a Stripe.
//
// Todas as transições recalculam o estado-alvo a partir do próprio payload
// do evento, nunca de um diff sobre o estado anterior — por isso o fluxo é
// idempotente e converge mesmo com reentregas da Stripe.
type AssinaturaService struct {
	perfis  repository.PerfilRepository
	eventos repository.WebhookEventRepository
	gateway billing.Gateway

	// Política de falha de pagamento (ver config.Config).
	gracePeriodOnPaymentFailure bool
}

// NewAssinaturaService cria o serviço com as dependências injetadas.
func NewAssinaturaService(
	perfis repository.PerfilRepository,
	eventos repository.WebhookEventRepository,
	gateway billing.Gateway,
	gracePeriodOnPaymentFailure bool,
) *AssinaturaService {
	return &AssinaturaService{
		perfis:                      perfis,
		eventos:                     eventos,
		gateway:                     gateway,
		gracePeriodOnPaymentFailure: gracePeriodOnPaymentFailure,
	}
}

// CriarCheckoutSession valida o pedido de upgrade e devolve a URL de
// redirecionamento: portal de billing se a conta já assina, checkout novo
// caso contrário. Nenhum estado é gravado aqui — quem escreve é o webhook,
// depois que a Stripe confirma o evento.
func (s *AssinaturaService) CriarCheckoutSession(ctx context.Context, userID, email string) (string, error) {
	if userID == "" || email == "" {
		return "", ErrDadosInvalidos
	}

	perfil, err := s.perfis.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	// Assinante ativo não abre checkout de novo: vai direto pro portal,
	// senão acabaria com duas assinaturas para a mesma conta.
	if perfil != nil && perfil.StripeCustomerID != "" &&
		perfil.SubscriptionStatus == domain.SubscriptionStatusActive {
		return s.gateway.CriarPortalSession(ctx, perfil.StripeCustomerID)
	}

	return s.gateway.CriarCheckoutSession(ctx, userID, email)
}

// ProcessarWebhook é o ponto de entrada dos eventos da Stripe: valida a
// assinatura sobre os bytes crus, deduplica reentregas e aplica a transição.
// Um erro aqui vira resposta 5xx, e a Stripe reentrega o evento mais tarde.
func (s *AssinaturaService) ProcessarWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ConstruirEvento(payload, signature)
	if err != nil {
		slog.Error("Assinatura de webhook inválida", "error", err)
		return ErrAssinaturaWebhook
	}

	ja, err := s.eventos.JaProcessado(ctx, event.ID)
	if err != nil {
		return err
	}
	if ja {
		slog.Info("Evento de webhook já processado, ignorando reentrega",
			"event_id", event.ID, "event_type", event.Type)
		return nil
	}

	if err := s.aplicarEvento(ctx, event); err != nil {
		return err
	}

	// Registrado só DEPOIS de aplicar: se a escrita acima falhar, a
	// reentrega da Stripe reexecuta a transição (que é idempotente).
	return s.eventos.Registrar(ctx, event.ID, string(event.Type))
}

// aplicarEvento é a tabela de transições do fluxo de reconciliação.
func (s *AssinaturaService) aplicarEvento(ctx context.Context, event stripe.Event) error {
	switch event.Type {

	// Checkout completo → só vincular IDs. Plano e status são escritos
	// exclusivamente pelos eventos customer.subscription.*, para não haver
	// dois handlers disputando a mesma linha.
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return err
		}
		if sess.Mode != stripe.CheckoutSessionModeSubscription {
			return nil
		}

		userID := sess.Metadata["userId"]
		if userID == "" {
			// Sem o vínculo com a conta não dá para saber de quem é a
			// assinatura; melhor não tocar em linha nenhuma.
			slog.Error("userId ausente no metadata do checkout", "event_id", event.ID)
			return nil
		}

		var customerID, subscriptionID string
		if sess.Customer != nil {
			customerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			subscriptionID = sess.Subscription.ID
		}

		if err := s.perfis.VincularStripe(ctx, userID, customerID, subscriptionID); err != nil {
			return err
		}
		slog.Info("IDs da Stripe vinculados ao perfil", "user_id", userID)
		return nil

	// Fonte oficial do estado da assinatura.
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			slog.Error("Evento de assinatura sem customer", "event_id", event.ID)
			return nil
		}

		perfil, err := s.perfis.GetByStripeCustomerID(ctx, sub.Customer.ID)
		if err != nil {
			return err
		}
		if perfil == nil {
			slog.Warn("Evento de assinatura para customer desconhecido",
				"customer_id", sub.Customer.ID, "event_id", event.ID)
			return nil
		}
		if event.Created < perfil.LastEventAt {
			slog.Info("Evento de assinatura fora de ordem, ignorando",
				"event_id", event.ID, "event_created", event.Created,
				"last_event_at", perfil.LastEventAt)
			return nil
		}

		status := string(sub.Status)
		up := domain.AssinaturaUpdate{
			Plan:              domain.PlanFromStatus(status),
			Status:            status,
			SubscriptionID:    sub.ID,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
			EventAt:           event.Created,
		}
		if sub.CurrentPeriodEnd > 0 {
			t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			up.CurrentPeriodEnd = &t
		}

		if err := s.perfis.AtualizarAssinatura(ctx, sub.Customer.ID, up); err != nil {
			return err
		}
		slog.Info("Assinatura atualizada", "customer_id", sub.Customer.ID,
			"status", status, "plan", up.Plan)
		return nil

	// Cancelamento definitivo: volta para free, independente do estado.
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			slog.Error("Evento de cancelamento sem customer", "event_id", event.ID)
			return nil
		}
		if err := s.perfis.CancelarAssinatura(ctx, sub.Customer.ID, event.Created); err != nil {
			return err
		}
		slog.Info("Assinatura cancelada", "customer_id", sub.Customer.ID)
		return nil

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		if inv.Customer == nil || inv.Customer.ID == "" {
			slog.Error("Invoice sem customer", "event_id", event.ID)
			return nil
		}
		if s.gracePeriodOnPaymentFailure {
			// Período de carência: marca past_due e deixa o evento de
			// assinatura decidir o plano.
			if err := s.perfis.AtualizarStatus(ctx, inv.Customer.ID,
				domain.SubscriptionStatusPastDue); err != nil {
				return err
			}
		} else {
			if err := s.perfis.AtualizarPlanoEStatus(ctx, inv.Customer.ID,
				domain.PlanFree, domain.SubscriptionStatusPastDue); err != nil {
				return err
			}
		}
		slog.Warn("Pagamento falhou", "customer_id", inv.Customer.ID,
			"grace_period", s.gracePeriodOnPaymentFailure)
		return nil

	case "invoice.paid":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		if inv.Customer == nil || inv.Customer.ID == "" {
			slog.Error("Invoice sem customer", "event_id", event.ID)
			return nil
		}
		if err := s.perfis.AtualizarStatus(ctx, inv.Customer.ID,
			domain.SubscriptionStatusActive); err != nil {
			return err
		}
		slog.Info("Invoice paga", "customer_id", inv.Customer.ID)
		return nil

	default:
		// Evento fora da tabela: reconhecer e seguir, senão a Stripe fica
		// reentregando algo que nunca vamos tratar.
		slog.Info("Evento de webhook ignorado", "event_type", event.Type)
		return nil
	}
}
