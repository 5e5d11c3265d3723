package repository

import (
	"context"
	"database/sql"

	"github.com/flowdeskhq/flowdesk/internal/domain"
)

// PerfilRepository define a persistência da tabela profiles.
// A interface permite mockar a camada nos testes, como nas demais.
//
// Os métodos de assinatura espelham os updates que o webhook faz: cada
// transição escreve o estado-alvo completo derivado do payload, nunca um
// diff — é isso que torna o fluxo idempotente sob reentrega.
type PerfilRepository interface {
	Create(ctx context.Context, perfil domain.Perfil) error
	GetByID(ctx context.Context, id string) (*domain.Perfil, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Perfil, error)
	UpdateConfiguracoes(ctx context.Context, id, nomeEmpresa, telefone string) error

	// VincularStripe grava os IDs externos no perfil dono do checkout
	// (chave: id da conta). É o elo entre a conta e o cliente na Stripe.
	VincularStripe(ctx context.Context, id, customerID, subscriptionID string) error

	// AtualizarAssinatura aplica o estado vindo de um evento
	// customer.subscription.* (chave: stripe_customer_id).
	AtualizarAssinatura(ctx context.Context, customerID string, up domain.AssinaturaUpdate) error

	// CancelarAssinatura zera a assinatura: plan=free, status=canceled.
	CancelarAssinatura(ctx context.Context, customerID string, eventAt int64) error

	// AtualizarStatus muda só o subscription_status (eventos de invoice).
	AtualizarStatus(ctx context.Context, customerID, status string) error

	// AtualizarPlanoEStatus muda plano e status juntos (falha de pagamento
	// sem período de carência).
	AtualizarPlanoEStatus(ctx context.Context, customerID, plan, status string) error
}

type sqlitePerfilRepository struct {
	db *sql.DB
}

// NewPerfilRepository cria o repositório de perfis sobre SQLite.
func NewPerfilRepository(db *sql.DB) PerfilRepository {
	return &sqlitePerfilRepository{db: db}
}

const perfilColunas = `id, email, nome_empresa, telefone, plan, subscription_status,
	stripe_customer_id, stripe_subscription_id, current_period_end,
	cancel_at_period_end, last_event_at, created_at`

func (r *sqlitePerfilRepository) Create(ctx context.Context, perfil domain.Perfil) error {
	stmt, err := r.db.PrepareContext(ctx,
		`INSERT INTO profiles (id, email, plan, subscription_status, created_at)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, perfil.ID, perfil.Email, perfil.Plan,
		perfil.SubscriptionStatus, perfil.CreatedAt)
	return err
}

func (r *sqlitePerfilRepository) GetByID(ctx context.Context, id string) (*domain.Perfil, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+perfilColunas+` FROM profiles WHERE id = ?`, id)
	return scanPerfil(row)
}

func (r *sqlitePerfilRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Perfil, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+perfilColunas+` FROM profiles WHERE stripe_customer_id = ?`, customerID)
	return scanPerfil(row)
}

func scanPerfil(row *sql.Row) (*domain.Perfil, error) {
	var p domain.Perfil
	var periodEnd sql.NullTime
	err := row.Scan(&p.ID, &p.Email, &p.NomeEmpresa, &p.Telefone, &p.Plan,
		&p.SubscriptionStatus, &p.StripeCustomerID, &p.StripeSubscriptionID,
		&periodEnd, &p.CancelAtPeriodEnd, &p.LastEventAt, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // perfil não encontrado não é erro da camada de dados
		}
		return nil, err
	}
	if periodEnd.Valid {
		t := periodEnd.Time
		p.CurrentPeriodEnd = &t
	}
	return &p, nil
}

func (r *sqlitePerfilRepository) UpdateConfiguracoes(ctx context.Context, id, nomeEmpresa, telefone string) error {
	stmt, err := r.db.PrepareContext(ctx,
		`UPDATE profiles SET nome_empresa = ?, telefone = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, nomeEmpresa, telefone, id)
	return err
}

func (r *sqlitePerfilRepository) VincularStripe(ctx context.Context, id, customerID, subscriptionID string) error {
	stmt, err := r.db.PrepareContext(ctx,
		`UPDATE profiles SET stripe_customer_id = ?, stripe_subscription_id = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, customerID, subscriptionID, id)
	return err
}

func (r *sqlitePerfilRepository) AtualizarAssinatura(ctx context.Context, customerID string, up domain.AssinaturaUpdate) error {
	stmt, err := r.db.PrepareContext(ctx,
		`UPDATE profiles
		 SET plan = ?, subscription_status = ?, stripe_subscription_id = ?,
		     current_period_end = ?, cancel_at_period_end = ?, last_event_at = ?
		 WHERE stripe_customer_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var periodEnd any
	if up.CurrentPeriodEnd != nil {
		periodEnd = *up.CurrentPeriodEnd
	}
	_, err = stmt.ExecContext(ctx, up.Plan, up.Status, up.SubscriptionID,
		periodEnd, up.CancelAtPeriodEnd, up.EventAt, customerID)
	return err
}

func (r *sqlitePerfilRepository) CancelarAssinatura(ctx context.Context, customerID string, eventAt int64) error {
	stmt, err := r.db.PrepareContext(ctx,
		`UPDATE profiles
		 SET plan = ?, subscription_status = ?, last_event_at = ?
		 WHERE stripe_customer_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, domain.PlanFree, domain.SubscriptionStatusCanceled,
		eventAt, customerID)
	return err
}

func (r *sqlitePerfilRepository) AtualizarStatus(ctx context.Context, customerID, status string) error {
	stmt, err := r.db.PrepareContext(ctx,
		`UPDATE profiles SET subscription_status = ? WHERE stripe_customer_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, status, customerID)
	return err
}

func (r *sqlitePerfilRepository) AtualizarPlanoEStatus(ctx context.Context, customerID, plan, status string) error {
	stmt, err := r.db.PrepareContext(ctx,
		`UPDATE profiles SET plan = ?, subscription_status = ? WHERE stripe_customer_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, plan, status, customerID)
	return err
}
