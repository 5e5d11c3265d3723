package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/flowdeskhq/flowdesk/internal/domain"
)

// --- Fakes ---

// fakeGateway é uma implementação falsa do billing.Gateway. Controlamos o
// que cada função retorna para simular os cenários da Stripe.
type fakeGateway struct {
	CriarCheckoutSessionFn func(ctx context.Context, userID, email string) (string, error)
	CriarPortalSessionFn   func(ctx context.Context, customerID string) (string, error)
	ConstruirEventoFn      func(payload []byte, signature string) (stripe.Event, error)

	checkoutCalls int
	portalCalls   int
}

func (f *fakeGateway) CriarCheckoutSession(ctx context.Context, userID, email string) (string, error) {
	f.checkoutCalls++
	if f.CriarCheckoutSessionFn != nil {
		return f.CriarCheckoutSessionFn(ctx, userID, email)
	}
	return "https://checkout.stripe.com/c/pay/cs_test", nil
}

func (f *fakeGateway) CriarPortalSession(ctx context.Context, customerID string) (string, error) {
	f.portalCalls++
	if f.CriarPortalSessionFn != nil {
		return f.CriarPortalSessionFn(ctx, customerID)
	}
	return "https://billing.stripe.com/p/session/test", nil
}

func (f *fakeGateway) ConstruirEvento(payload []byte, signature string) (stripe.Event, error) {
	return f.ConstruirEventoFn(payload, signature)
}

// memPerfilRepo guarda perfis em memória, com a mesma semântica de escrita
// do repositório real (updates por id ou por stripe_customer_id).
type memPerfilRepo struct {
	perfis map[string]*domain.Perfil
}

func newMemPerfilRepo(perfis ...domain.Perfil) *memPerfilRepo {
	m := &memPerfilRepo{perfis: make(map[string]*domain.Perfil)}
	for _, p := range perfis {
		cp := p
		m.perfis[p.ID] = &cp
	}
	return m
}

func (m *memPerfilRepo) Create(_ context.Context, perfil domain.Perfil) error {
	cp := perfil
	m.perfis[perfil.ID] = &cp
	return nil
}

func (m *memPerfilRepo) GetByID(_ context.Context, id string) (*domain.Perfil, error) {
	if p, ok := m.perfis[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memPerfilRepo) GetByStripeCustomerID(_ context.Context, customerID string) (*domain.Perfil, error) {
	if p := m.byCustomer(customerID); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memPerfilRepo) UpdateConfiguracoes(_ context.Context, id, nomeEmpresa, telefone string) error {
	if p, ok := m.perfis[id]; ok {
		p.NomeEmpresa = nomeEmpresa
		p.Telefone = telefone
	}
	return nil
}

func (m *memPerfilRepo) VincularStripe(_ context.Context, id, customerID, subscriptionID string) error {
	if p, ok := m.perfis[id]; ok {
		p.StripeCustomerID = customerID
		p.StripeSubscriptionID = subscriptionID
	}
	return nil
}

func (m *memPerfilRepo) AtualizarAssinatura(_ context.Context, customerID string, up domain.AssinaturaUpdate) error {
	if p := m.byCustomer(customerID); p != nil {
		p.Plan = up.Plan
		p.SubscriptionStatus = up.Status
		p.StripeSubscriptionID = up.SubscriptionID
		p.CurrentPeriodEnd = up.CurrentPeriodEnd
		p.CancelAtPeriodEnd = up.CancelAtPeriodEnd
		p.LastEventAt = up.EventAt
	}
	return nil
}

func (m *memPerfilRepo) CancelarAssinatura(_ context.Context, customerID string, eventAt int64) error {
	if p := m.byCustomer(customerID); p != nil {
		p.Plan = domain.PlanFree
		p.SubscriptionStatus = domain.SubscriptionStatusCanceled
		p.LastEventAt = eventAt
	}
	return nil
}

func (m *memPerfilRepo) AtualizarStatus(_ context.Context, customerID, status string) error {
	if p := m.byCustomer(customerID); p != nil {
		p.SubscriptionStatus = status
	}
	return nil
}

func (m *memPerfilRepo) AtualizarPlanoEStatus(_ context.Context, customerID, plan, status string) error {
	if p := m.byCustomer(customerID); p != nil {
		p.Plan = plan
		p.SubscriptionStatus = status
	}
	return nil
}

func (m *memPerfilRepo) byCustomer(customerID string) *domain.Perfil {
	if customerID == "" {
		return nil
	}
	for _, p := range m.perfis {
		if p.StripeCustomerID == customerID {
			return p
		}
	}
	return nil
}

// memEventoRepo deduplica eventos em memória.
type memEventoRepo struct {
	processados map[string]bool
}

func newMemEventoRepo() *memEventoRepo {
	return &memEventoRepo{processados: make(map[string]bool)}
}

func (m *memEventoRepo) JaProcessado(_ context.Context, eventID string) (bool, error) {
	return m.processados[eventID], nil
}

func (m *memEventoRepo) Registrar(_ context.Context, eventID, _ string) error {
	m.processados[eventID] = true
	return nil
}

// --- Helpers ---

func eventoStripe(id, tipo string, created int64, raw string) stripe.Event {
	return stripe.Event{
		ID:      id,
		Type:    stripe.EventType(tipo),
		Created: created,
		Data:    &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

// gatewayComEvento devolve um gateway cujo ConstruirEvento sempre aceita a
// assinatura e entrega o evento informado.
func gatewayComEvento(ev stripe.Event) *fakeGateway {
	return &fakeGateway{
		ConstruirEventoFn: func([]byte, string) (stripe.Event, error) {
			return ev, nil
		},
	}
}

func processar(t *testing.T, s *AssinaturaService, ev stripe.Event) {
	t.Helper()
	s.gateway = gatewayComEvento(ev)
	require.NoError(t, s.ProcessarWebhook(context.Background(), []byte("{}"), "t=1,v1=ok"))
}

// --- Checkout ---

func TestCriarCheckoutSession(t *testing.T) {
	t.Run("dados inválidos - campos obrigatórios ausentes", func(t *testing.T) {
		s := NewAssinaturaService(newMemPerfilRepo(), newMemEventoRepo(), &fakeGateway{}, true)

		_, err := s.CriarCheckoutSession(context.Background(), "", "a@b.com")
		assert.ErrorIs(t, err, ErrDadosInvalidos)

		_, err = s.CriarCheckoutSession(context.Background(), "u1", "")
		assert.ErrorIs(t, err, ErrDadosInvalidos)
	})

	t.Run("conta sem assinatura - cria checkout com o userId", func(t *testing.T) {
		perfis := newMemPerfilRepo(domain.Perfil{
			ID: "u1", Email: "a@b.com",
			Plan: domain.PlanFree, SubscriptionStatus: domain.SubscriptionStatusNone,
		})
		gw := &fakeGateway{
			CriarCheckoutSessionFn: func(_ context.Context, userID, email string) (string, error) {
				assert.Equal(t, "u1", userID)
				assert.Equal(t, "a@b.com", email)
				return "https://checkout.stripe.com/c/pay/cs_123", nil
			},
		}
		s := NewAssinaturaService(perfis, newMemEventoRepo(), gw, true)

		url, err := s.CriarCheckoutSession(context.Background(), "u1", "a@b.com")
		require.NoError(t, err)
		assert.NotEmpty(t, url)
		assert.Equal(t, 1, gw.checkoutCalls)
		assert.Equal(t, 0, gw.portalCalls)
	})

	t.Run("conta sem perfil ainda - também cria checkout", func(t *testing.T) {
		gw := &fakeGateway{}
		s := NewAssinaturaService(newMemPerfilRepo(), newMemEventoRepo(), gw, true)

		url, err := s.CriarCheckoutSession(context.Background(), "u-novo", "novo@b.com")
		require.NoError(t, err)
		assert.NotEmpty(t, url)
		assert.Equal(t, 1, gw.checkoutCalls)
	})

	t.Run("assinante ativo - vai para o portal, nunca para o checkout", func(t *testing.T) {
		perfis := newMemPerfilRepo(domain.Perfil{
			ID: "u1", Email: "a@b.com",
			Plan:               domain.PlanPro,
			SubscriptionStatus: domain.SubscriptionStatusActive,
			StripeCustomerID:   "cus_1",
		})
		gw := &fakeGateway{
			CriarPortalSessionFn: func(_ context.Context, customerID string) (string, error) {
				assert.Equal(t, "cus_1", customerID)
				return "https://billing.stripe.com/p/session/xyz", nil
			},
		}
		s := NewAssinaturaService(perfis, newMemEventoRepo(), gw, true)

		url, err := s.CriarCheckoutSession(context.Background(), "u1", "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "https://billing.stripe.com/p/session/xyz", url)
		assert.Equal(t, 0, gw.checkoutCalls)
		assert.Equal(t, 1, gw.portalCalls)
	})

	t.Run("past_due não vai para o portal - abre checkout de novo", func(t *testing.T) {
		perfis := newMemPerfilRepo(domain.Perfil{
			ID: "u1", Plan: domain.PlanPro,
			SubscriptionStatus: domain.SubscriptionStatusPastDue,
			StripeCustomerID:   "cus_1",
		})
		gw := &fakeGateway{}
		s := NewAssinaturaService(perfis, newMemEventoRepo(), gw, true)

		_, err := s.CriarCheckoutSession(context.Background(), "u1", "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, 1, gw.checkoutCalls)
		assert.Equal(t, 0, gw.portalCalls)
	})
}

// --- Webhook: porta de entrada ---

func TestProcessarWebhook_AssinaturaInvalida(t *testing.T) {
	perfis := newMemPerfilRepo(domain.Perfil{ID: "u1", Plan: domain.PlanFree})
	gw := &fakeGateway{
		ConstruirEventoFn: func([]byte, string) (stripe.Event, error) {
			return stripe.Event{}, errors.New("signature mismatch")
		},
	}
	s := NewAssinaturaService(perfis, newMemEventoRepo(), gw, true)

	err := s.ProcessarWebhook(context.Background(), []byte(`{"adulterado":true}`), "t=1,v1=bad")
	assert.ErrorIs(t, err, ErrAssinaturaWebhook)

	// Nenhum perfil pode ter sido mutado.
	p, _ := perfis.GetByID(context.Background(), "u1")
	assert.Equal(t, domain.PlanFree, p.Plan)
}

func TestProcessarWebhook_Deduplicacao(t *testing.T) {
	perfis := newMemPerfilRepo(domain.Perfil{ID: "u1", StripeCustomerID: "cus_1", Plan: domain.PlanFree})
	eventos := newMemEventoRepo()
	s := NewAssinaturaService(perfis, eventos, nil, true)

	ev := eventoStripe("evt_1", "customer.subscription.updated", 100,
		`{"id":"sub_1","customer":"cus_1","status":"active","current_period_end":1700000000}`)
	processar(t, s, ev)

	p, _ := perfis.GetByID(context.Background(), "u1")
	require.Equal(t, domain.PlanPro, p.Plan)

	// Cancela "por fora" e reentrega o MESMO evento: a transição não pode
	// ser reaplicada.
	require.NoError(t, perfis.CancelarAssinatura(context.Background(), "cus_1", 200))
	processar(t, s, ev)

	p, _ = perfis.GetByID(context.Background(), "u1")
	assert.Equal(t, domain.PlanFree, p.Plan)
	assert.Equal(t, domain.SubscriptionStatusCanceled, p.SubscriptionStatus)
}

// --- Webhook: transições ---

func TestAplicarEvento_CheckoutCompletado_SoVinculaIDs(t *testing.T) {
	perfis := newMemPerfilRepo(domain.Perfil{
		ID: "u1", Plan: domain.PlanFree,
		SubscriptionStatus: domain.SubscriptionStatusNone,
	})
	s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, true)

	ev := eventoStripe("evt_co", "checkout.session.completed", 50,
		`{"id":"cs_1","mode":"subscription","customer":"cus_1","subscription":"sub_1","metadata":{"userId":"u1"}}`)
	processar(t, s, ev)

	p, _ := perfis.GetByID(context.Background(), "u1")
	assert.Equal(t, "cus_1", p.StripeCustomerID)
	assert.Equal(t, "sub_1", p.StripeSubscriptionID)
	// Link-only: plano e status ficam para o customer.subscription.*.
	assert.Equal(t, domain.PlanFree, p.Plan)
	assert.Equal(t, domain.SubscriptionStatusNone, p.SubscriptionStatus)
}

func TestAplicarEvento_CheckoutSemMetadata_NaoTocaEmNada(t *testing.T) {
	perfis := newMemPerfilRepo(domain.Perfil{ID: "u1", Plan: domain.PlanFree})
	s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, true)

	ev := eventoStripe("evt_co2", "checkout.session.completed", 50,
		`{"id":"cs_2","mode":"subscription","customer":"cus_9","subscription":"sub_9","metadata":{}}`)
	processar(t, s, ev)

	p, _ := perfis.GetByID(context.Background(), "u1")
	assert.Empty(t, p.StripeCustomerID)
	assert.Empty(t, p.StripeSubscriptionID)
}

func TestAplicarEvento_AssinaturaAtualizada(t *testing.T) {
	casos := []struct {
		status     string
		planEspera string
	}{
		{"active", domain.PlanPro},
		{"trialing", domain.PlanPro},
		{"past_due", domain.PlanPro}, // carência: past_due mantém pro
		{"canceled", domain.PlanFree},
		{"unpaid", domain.PlanFree},
		{"incomplete_expired", domain.PlanFree}, // status desconhecido cai em free
	}

	for _, c := range casos {
		t.Run(c.status, func(t *testing.T) {
			perfis := newMemPerfilRepo(domain.Perfil{ID: "u1", StripeCustomerID: "cus_1"})
			s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, true)

			ev := eventoStripe("evt_up_"+c.status, "customer.subscription.updated", 100,
				`{"id":"sub_1","customer":"cus_1","status":"`+c.status+`","current_period_end":1700000000,"cancel_at_period_end":true}`)
			processar(t, s, ev)

			p, _ := perfis.GetByID(context.Background(), "u1")
			assert.Equal(t, c.planEspera, p.Plan)
			assert.Equal(t, c.status, p.SubscriptionStatus)
			assert.Equal(t, "sub_1", p.StripeSubscriptionID)
			assert.True(t, p.CancelAtPeriodEnd)
			require.NotNil(t, p.CurrentPeriodEnd)
			assert.Equal(t, time.Unix(1700000000, 0).UTC(), *p.CurrentPeriodEnd)
		})
	}
}

func TestAplicarEvento_Idempotencia(t *testing.T) {
	perfis := newMemPerfilRepo(domain.Perfil{ID: "u1", StripeCustomerID: "cus_1"})
	s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, true)

	raw := `{"id":"sub_1","customer":"cus_1","status":"active","current_period_end":1700000000}`
	// Mesmo payload N vezes (ids de evento diferentes, como numa reentrega
	// que a Stripe re-emite) — o estado final é o mesmo de aplicar uma vez.
	for i, id := range []string{"evt_a", "evt_b", "evt_c"} {
		processar(t, s, eventoStripe(id, "customer.subscription.updated", int64(100+i), raw))
	}

	p, _ := perfis.GetByID(context.Background(), "u1")
	assert.Equal(t, domain.PlanPro, p.Plan)
	assert.Equal(t, domain.SubscriptionStatusActive, p.SubscriptionStatus)
}

func TestAplicarEvento_ConvergenciaForaDeOrdem(t *testing.T) {
	perfis := newMemPerfilRepo(domain.Perfil{ID: "u1", StripeCustomerID: "cus_1"})
	s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, true)

	// created(active) → updated(active, mais novo) → updated(past_due,
	// atrasado): o evento velho chega por último e deve ser ignorado.
	processar(t, s, eventoStripe("evt_1", "customer.subscription.created", 100,
		`{"id":"sub_1","customer":"cus_1","status":"active"}`))
	processar(t, s, eventoStripe("evt_3", "customer.subscription.updated", 300,
		`{"id":"sub_1","customer":"cus_1","status":"active"}`))
	processar(t, s, eventoStripe("evt_2", "customer.subscription.updated", 200,
		`{"id":"sub_1","customer":"cus_1","status":"past_due"}`))

	p, _ := perfis.GetByID(context.Background(), "u1")
	assert.Equal(t, domain.SubscriptionStatusActive, p.SubscriptionStatus)
	assert.Equal(t, domain.PlanPro, p.Plan)
}

func TestAplicarEvento_CustomerDesconhecido_NaoFalha(t *testing.T) {
	perfis := newMemPerfilRepo(domain.Perfil{ID: "u1", StripeCustomerID: "cus_1", Plan: domain.PlanFree})
	s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, true)

	processar(t, s, eventoStripe("evt_x", "customer.subscription.updated", 100,
		`{"id":"sub_9","customer":"cus_desconhecido","status":"active"}`))

	p, _ := perfis.GetByID(context.Background(), "u1")
	assert.Equal(t, domain.PlanFree, p.Plan)
}

func TestAplicarEvento_AssinaturaDeletada(t *testing.T) {
	perfis := newMemPerfilRepo(domain.Perfil{
		ID: "u1", StripeCustomerID: "cus_1",
		Plan:               domain.PlanPro,
		SubscriptionStatus: domain.SubscriptionStatusActive,
	})
	s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, true)

	processar(t, s, eventoStripe("evt_del", "customer.subscription.deleted", 400,
		`{"id":"sub_1","customer":"cus_1","status":"canceled"}`))

	p, _ := perfis.GetByID(context.Background(), "u1")
	assert.Equal(t, domain.PlanFree, p.Plan)
	assert.Equal(t, domain.SubscriptionStatusCanceled, p.SubscriptionStatus)
}

func TestAplicarEvento_FalhaDePagamento(t *testing.T) {
	t.Run("com carência - só marca past_due", func(t *testing.T) {
		perfis := newMemPerfilRepo(domain.Perfil{
			ID: "u1", StripeCustomerID: "cus_1",
			Plan: domain.PlanPro, SubscriptionStatus: domain.SubscriptionStatusActive,
		})
		s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, true)

		processar(t, s, eventoStripe("evt_f1", "invoice.payment_failed", 100,
			`{"id":"in_1","customer":"cus_1"}`))

		p, _ := perfis.GetByID(context.Background(), "u1")
		assert.Equal(t, domain.PlanPro, p.Plan) // plano preservado
		assert.Equal(t, domain.SubscriptionStatusPastDue, p.SubscriptionStatus)
	})

	t.Run("sem carência - rebaixa para free na hora", func(t *testing.T) {
		perfis := newMemPerfilRepo(domain.Perfil{
			ID: "u1", StripeCustomerID: "cus_1",
			Plan: domain.PlanPro, SubscriptionStatus: domain.SubscriptionStatusActive,
		})
		s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, false)

		processar(t, s, eventoStripe("evt_f2", "invoice.payment_failed", 100,
			`{"id":"in_1","customer":"cus_1"}`))

		p, _ := perfis.GetByID(context.Background(), "u1")
		assert.Equal(t, domain.PlanFree, p.Plan)
		assert.Equal(t, domain.SubscriptionStatusPastDue, p.SubscriptionStatus)
	})
}

func TestAplicarEvento_InvoicePaga(t *testing.T) {
	perfis := newMemPerfilRepo(domain.Perfil{
		ID: "u1", StripeCustomerID: "cus_1",
		Plan: domain.PlanPro, SubscriptionStatus: domain.SubscriptionStatusPastDue,
	})
	s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, true)

	processar(t, s, eventoStripe("evt_paid", "invoice.paid", 100,
		`{"id":"in_2","customer":"cus_1"}`))

	p, _ := perfis.GetByID(context.Background(), "u1")
	assert.Equal(t, domain.SubscriptionStatusActive, p.SubscriptionStatus)
}

func TestAplicarEvento_EventoDesconhecido_Reconhecido(t *testing.T) {
	perfis := newMemPerfilRepo(domain.Perfil{ID: "u1", Plan: domain.PlanFree})
	s := NewAssinaturaService(perfis, newMemEventoRepo(), nil, true)

	// Não pode dar erro, senão a Stripe reentrega para sempre.
	processar(t, s, eventoStripe("evt_z", "customer.created", 100, `{"id":"cus_1"}`))

	p, _ := perfis.GetByID(context.Background(), "u1")
	assert.Equal(t, domain.PlanFree, p.Plan)
}
