package domain

import (
	"encoding/json"
	"time"
)

// Status do funil de vendas. As seis primeiras são as colunas do pipeline;
// aprovado/recusado/cancelado aparecem nos relatórios do dashboard.
const (
	StatusLead              = "lead"
	StatusPropostaEnviada   = "proposta_enviada"
	StatusAguardandoCliente = "aguardando_cliente"
	StatusPropostaValidada  = "proposta_validada"
	StatusAndamento         = "andamento"
	StatusConcluido         = "concluido"
	StatusAprovado          = "aprovado"
	StatusRecusado          = "recusado"
	StatusCancelado         = "cancelado"
)

// Limite de serviços para contas no plano free.
const LimiteServicosFree = 5

// StatusValido diz se um status pertence ao funil.
func StatusValido(status string) bool {
	switch status {
	case StatusLead, StatusPropostaEnviada, StatusAguardandoCliente,
		StatusPropostaValidada, StatusAndamento, StatusConcluido,
		StatusAprovado, StatusRecusado, StatusCancelado:
		return true
	}
	return false
}

// Servico é um lead/orçamento/ordem de serviço — a mesma linha percorre o
// funil inteiro, do lead até a venda concluída.
type Servico struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	NumeroOS string `json:"numero_os"`

	Titulo      string `json:"titulo"`
	Descricao   string `json:"descricao"`
	Cliente     string `json:"cliente"`
	TipoServico string `json:"tipo_servico"`
	Status      string `json:"status"`

	OrigemLead  string `json:"origem_lead"`
	Telefone    string `json:"telefone"`
	Responsavel string `json:"responsavel"`

	ValorOrcamento     float64 `json:"valor_orcamento"`
	Custo              float64 `json:"custo"`
	ValorComissao      float64 `json:"valor_comissao"`
	PercentualComissao float64 `json:"percentual_comissao"`
	ComissaoPaga       bool    `json:"comissao_paga"`

	TipoPessoa     string `json:"tipo_pessoa"`
	CPF            string `json:"cpf"`
	CNPJ           string `json:"cnpj"`
	FormaPagamento string `json:"forma_pagamento"`
	Entrega        string `json:"entrega"`
	Observacoes    string `json:"observacoes"`

	// Itens do orçamento, guardados como JSON livre (descrição, valor, qtd...).
	Itens json.RawMessage `json:"itens,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ComissaoCalculada retorna o valor da comissão, calculando a partir do
// percentual quando o valor não foi informado explicitamente.
func (s Servico) ComissaoCalculada() float64 {
	if s.ValorComissao > 0 {
		return s.ValorComissao
	}
	if s.ValorOrcamento > 0 && s.PercentualComissao > 0 {
		return s.ValorOrcamento * s.PercentualComissao / 100
	}
	return 0
}
