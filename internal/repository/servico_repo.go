package repository

import (
	"context"
	"database/sql"

	"github.com/flowdeskhq/flowdesk/internal/domain"
)

// ServicoRepository define a persistência da tabela servicos.
type ServicoRepository interface {
	Create(ctx context.Context, servico domain.Servico) error
	GetByID(ctx context.Context, id string) (*domain.Servico, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Servico, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Update(ctx context.Context, id string, servico domain.Servico) error
	UpdateStatus(ctx context.Context, id, status string) error
	MarcarComissaoPaga(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type sqliteServicoRepository struct {
	db *sql.DB
}

// NewServicoRepository cria o repositório de serviços sobre SQLite.
func NewServicoRepository(db *sql.DB) ServicoRepository {
	return &sqliteServicoRepository{db: db}
}

const servicoColunas = `id, user_id, numero_os, titulo, descricao, cliente,
	tipo_servico, status, origem_lead, telefone, responsavel,
	valor_orcamento, custo, valor_comissao, percentual_comissao, comissao_paga,
	tipo_pessoa, cpf, cnpj, forma_pagamento, entrega, observacoes, itens, created_at`

func (r *sqliteServicoRepository) Create(ctx context.Context, s domain.Servico) error {
	stmt, err := r.db.PrepareContext(ctx,
		`INSERT INTO servicos (`+servicoColunas+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	itens := s.Itens
	if len(itens) == 0 {
		itens = []byte("[]")
	}
	_, err = stmt.ExecContext(ctx,
		s.ID, s.UserID, s.NumeroOS, s.Titulo, s.Descricao, s.Cliente,
		s.TipoServico, s.Status, s.OrigemLead, s.Telefone, s.Responsavel,
		s.ValorOrcamento, s.Custo, s.ValorComissao, s.PercentualComissao, s.ComissaoPaga,
		s.TipoPessoa, s.CPF, s.CNPJ, s.FormaPagamento, s.Entrega, s.Observacoes,
		string(itens), s.CreatedAt)
	return err
}

func (r *sqliteServicoRepository) GetByID(ctx context.Context, id string) (*domain.Servico, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+servicoColunas+` FROM servicos WHERE id = ?`, id)

	s, err := scanServico(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *sqliteServicoRepository) ListByUser(ctx context.Context, userID string) ([]domain.Servico, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+servicoColunas+` FROM servicos
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servicos []domain.Servico
	for rows.Next() {
		s, err := scanServico(rows)
		if err != nil {
			return nil, err
		}
		servicos = append(servicos, *s)
	}
	return servicos, rows.Err()
}

func (r *sqliteServicoRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM servicos WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

func (r *sqliteServicoRepository) Update(ctx context.Context, id string, s domain.Servico) error {
	stmt, err := r.db.PrepareContext(ctx,
		`UPDATE servicos SET
			titulo = ?, descricao = ?, cliente = ?, tipo_servico = ?, status = ?,
			origem_lead = ?, telefone = ?, responsavel = ?,
			valor_orcamento = ?, custo = ?, valor_comissao = ?, percentual_comissao = ?,
			tipo_pessoa = ?, cpf = ?, cnpj = ?, forma_pagamento = ?, entrega = ?,
			observacoes = ?, itens = ?
		 WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	itens := s.Itens
	if len(itens) == 0 {
		itens = []byte("[]")
	}
	_, err = stmt.ExecContext(ctx,
		s.Titulo, s.Descricao, s.Cliente, s.TipoServico, s.Status,
		s.OrigemLead, s.Telefone, s.Responsavel,
		s.ValorOrcamento, s.Custo, s.ValorComissao, s.PercentualComissao,
		s.TipoPessoa, s.CPF, s.CNPJ, s.FormaPagamento, s.Entrega,
		s.Observacoes, string(itens), id)
	return err
}

func (r *sqliteServicoRepository) UpdateStatus(ctx context.Context, id, status string) error {
	stmt, err := r.db.PrepareContext(ctx, `UPDATE servicos SET status = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, status, id)
	return err
}

func (r *sqliteServicoRepository) MarcarComissaoPaga(ctx context.Context, id string) error {
	stmt, err := r.db.PrepareContext(ctx, `UPDATE servicos SET comissao_paga = 1 WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, id)
	return err
}

func (r *sqliteServicoRepository) Delete(ctx context.Context, id string) error {
	stmt, err := r.db.PrepareContext(ctx, `DELETE FROM servicos WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, id)
	return err
}

// scanServico aceita tanto *sql.Row quanto *sql.Rows.
func scanServico(row interface{ Scan(dest ...any) error }) (*domain.Servico, error) {
	var s domain.Servico
	var itens string
	err := row.Scan(&s.ID, &s.UserID, &s.NumeroOS, &s.Titulo, &s.Descricao,
		&s.Cliente, &s.TipoServico, &s.Status, &s.OrigemLead, &s.Telefone,
		&s.Responsavel, &s.ValorOrcamento, &s.Custo, &s.ValorComissao,
		&s.PercentualComissao, &s.ComissaoPaga, &s.TipoPessoa, &s.CPF, &s.CNPJ,
		&s.FormaPagamento, &s.Entrega, &s.Observacoes, &itens, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Itens = []byte(itens)
	return &s, nil
}
