package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeskhq/flowdesk/internal/domain"
)

// abrirDB abre um banco descartável com o schema migrado, um por teste.
func abrirDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "teste.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db))
	return db
}

func TestPerfilRepository(t *testing.T) {
	db := abrirDB(t)
	repo := NewPerfilRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.Perfil{
		ID: "u1", Email: "a@b.com",
		Plan:               domain.PlanFree,
		SubscriptionStatus: domain.SubscriptionStatusNone,
		CreatedAt:          time.Now().UTC(),
	}))

	t.Run("busca por id", func(t *testing.T) {
		p, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "a@b.com", p.Email)
		assert.Equal(t, domain.PlanFree, p.Plan)
		assert.Nil(t, p.CurrentPeriodEnd)
	})

	t.Run("id inexistente devolve nil sem erro", func(t *testing.T) {
		p, err := repo.GetByID(ctx, "u-fantasma")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("vincular IDs da Stripe e buscar por customer", func(t *testing.T) {
		require.NoError(t, repo.VincularStripe(ctx, "u1", "cus_1", "sub_1"))

		p, err := repo.GetByStripeCustomerID(ctx, "cus_1")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "u1", p.ID)
		assert.Equal(t, "sub_1", p.StripeSubscriptionID)
	})

	t.Run("atualizar assinatura escreve o estado completo", func(t *testing.T) {
		fim := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, repo.AtualizarAssinatura(ctx, "cus_1", domain.AssinaturaUpdate{
			Plan:              domain.PlanPro,
			Status:            domain.SubscriptionStatusActive,
			SubscriptionID:    "sub_1",
			CurrentPeriodEnd:  &fim,
			CancelAtPeriodEnd: true,
			EventAt:           1234,
		}))

		p, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, domain.PlanPro, p.Plan)
		assert.Equal(t, domain.SubscriptionStatusActive, p.SubscriptionStatus)
		assert.True(t, p.CancelAtPeriodEnd)
		assert.Equal(t, int64(1234), p.LastEventAt)
		require.NotNil(t, p.CurrentPeriodEnd)
		assert.True(t, fim.Equal(*p.CurrentPeriodEnd))
	})

	t.Run("atualizar só o status", func(t *testing.T) {
		require.NoError(t, repo.AtualizarStatus(ctx, "cus_1", domain.SubscriptionStatusPastDue))

		p, _ := repo.GetByID(ctx, "u1")
		assert.Equal(t, domain.PlanPro, p.Plan) // plano intocado
		assert.Equal(t, domain.SubscriptionStatusPastDue, p.SubscriptionStatus)
	})

	t.Run("cancelar volta para free", func(t *testing.T) {
		require.NoError(t, repo.CancelarAssinatura(ctx, "cus_1", 5678))

		p, _ := repo.GetByID(ctx, "u1")
		assert.Equal(t, domain.PlanFree, p.Plan)
		assert.Equal(t, domain.SubscriptionStatusCanceled, p.SubscriptionStatus)
		assert.Equal(t, int64(5678), p.LastEventAt)
	})

	t.Run("configurações", func(t *testing.T) {
		require.NoError(t, repo.UpdateConfiguracoes(ctx, "u1", "Oficina do Zé", "11987654321"))

		p, _ := repo.GetByID(ctx, "u1")
		assert.Equal(t, "Oficina do Zé", p.NomeEmpresa)
		assert.Equal(t, "11987654321", p.Telefone)
	})
}

func TestServicoRepository(t *testing.T) {
	db := abrirDB(t)
	perfis := NewPerfilRepository(db)
	repo := NewServicoRepository(db)
	ctx := context.Background()

	require.NoError(t, perfis.Create(ctx, domain.Perfil{
		ID: "u1", Email: "a@b.com", Plan: domain.PlanFree,
		SubscriptionStatus: domain.SubscriptionStatusNone,
		CreatedAt:          time.Now().UTC(),
	}))

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seed := []domain.Servico{
		{ID: "sv1", UserID: "u1", NumeroOS: "OS-1", Cliente: "Maria",
			Status: domain.StatusLead, ValorOrcamento: 100, CreatedAt: base},
		{ID: "sv2", UserID: "u1", NumeroOS: "OS-2", Cliente: "João",
			Status: domain.StatusConcluido, ValorOrcamento: 200,
			Itens:     []byte(`[{"descricao":"troca de óleo","valor":200}]`),
			CreatedAt: base.Add(time.Hour)},
	}
	for _, s := range seed {
		require.NoError(t, repo.Create(ctx, s))
	}

	t.Run("round-trip com itens em JSON", func(t *testing.T) {
		s, err := repo.GetByID(ctx, "sv2")
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "João", s.Cliente)
		assert.JSONEq(t, `[{"descricao":"troca de óleo","valor":200}]`, string(s.Itens))
	})

	t.Run("lista do mais novo para o mais antigo", func(t *testing.T) {
		lista, err := repo.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, lista, 2)
		assert.Equal(t, "sv2", lista[0].ID)
		assert.Equal(t, "sv1", lista[1].ID)
	})

	t.Run("contagem por conta", func(t *testing.T) {
		n, err := repo.CountByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = repo.CountByUser(ctx, "u2")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("update preserva dono e criação", func(t *testing.T) {
		require.NoError(t, repo.Update(ctx, "sv1", domain.Servico{
			Cliente: "Maria da Silva", Status: domain.StatusAndamento, ValorOrcamento: 150,
		}))

		s, _ := repo.GetByID(ctx, "sv1")
		assert.Equal(t, "Maria da Silva", s.Cliente)
		assert.Equal(t, domain.StatusAndamento, s.Status)
		assert.Equal(t, "u1", s.UserID)
		assert.Equal(t, "OS-1", s.NumeroOS)
	})

	t.Run("comissão paga e delete", func(t *testing.T) {
		require.NoError(t, repo.MarcarComissaoPaga(ctx, "sv2"))
		s, _ := repo.GetByID(ctx, "sv2")
		assert.True(t, s.ComissaoPaga)

		require.NoError(t, repo.Delete(ctx, "sv2"))
		s, err := repo.GetByID(ctx, "sv2")
		require.NoError(t, err)
		assert.Nil(t, s)
	})
}

func TestWebhookEventRepository(t *testing.T) {
	db := abrirDB(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	ja, err := repo.JaProcessado(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, ja)

	require.NoError(t, repo.Registrar(ctx, "evt_1", "invoice.paid"))

	ja, err = repo.JaProcessado(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, ja)

	// Registrar o mesmo id de novo não pode falhar (INSERT OR IGNORE).
	require.NoError(t, repo.Registrar(ctx, "evt_1", "invoice.paid"))
}
