package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/flowdeskhq/flowdesk/internal/domain"
	"github.com/flowdeskhq/flowdesk/internal/repository"
)

// RelatorioService calcula as agregações que alimentam o dashboard e os
// relatórios de clientes, comissões, equipe e vendas. As contas são as
// mesmas que as telas faziam, só que do lado do servidor.
type RelatorioService struct {
	servicos repository.ServicoRepository
}

// NewRelatorioService cria uma nova instância do RelatorioService.
func NewRelatorioService(servicos repository.ServicoRepository) *RelatorioService {
	return &RelatorioService{servicos: servicos}
}

// ReceitaMensal é um ponto do gráfico de linha (Jan..Dez).
type ReceitaMensal struct {
	Mes     string  `json:"mes"`
	Receita float64 `json:"receita"`
}

// StatusContagem é uma fatia do gráfico de status.
type StatusContagem struct {
	Name  string `json:"name"`
	Valor int    `json:"valor"`
}

// DashboardResumo é a resposta do dashboard principal.
type DashboardResumo struct {
	Aprovados          int              `json:"aprovados"`
	Pendentes          int              `json:"pendentes"`
	Recusados          int              `json:"recusados"`
	ReceitaTotal       float64          `json:"receita_total"`
	ReceitaMes         float64          `json:"receita_mes"`
	GraficoMensal      []ReceitaMensal  `json:"grafico_mensal"`
	GraficoStatus      []StatusContagem `json:"grafico_status"`
	OrcamentosRecentes []domain.Servico `json:"orcamentos_recentes"`
}

// ClienteResumo agrupa os números de um cliente.
type ClienteResumo struct {
	Nome          string  `json:"nome"`
	TotalServicos int     `json:"total_servicos"`
	TotalOrcado   float64 `json:"total_orcado"`
	TotalCusto    float64 `json:"total_custo"`
	TotalLucro    float64 `json:"total_lucro"`
}

// ComissaoItem é uma linha do relatório de comissões, com o valor já
// calculado (explícito ou derivado do percentual).
type ComissaoItem struct {
	domain.Servico
	ComissaoCalculada float64 `json:"comissao_calculada"`
}

// ComissoesResumo é a resposta do relatório de comissões.
type ComissoesResumo struct {
	Itens         []ComissaoItem `json:"itens"`
	Total         float64        `json:"total"`
	TotalPago     float64        `json:"total_pago"`
	TotalPendente float64        `json:"total_pendente"`
}

// ResponsavelResumo agrupa as vendas concluídas por responsável.
type ResponsavelResumo struct {
	Responsavel   string  `json:"responsavel"`
	TotalVendas   int     `json:"total_vendas"`
	TotalReceita  float64 `json:"total_receita"`
	TotalComissao float64 `json:"total_comissao"`
}

var nomesMeses = []string{
	"Jan", "Fev", "Mar", "Abr", "Mai", "Jun",
	"Jul", "Ago", "Set", "Out", "Nov", "Dez",
}

// Dashboard monta o resumo do dashboard para a conta, com filtro opcional
// de período (hoje, 7dias, 30dias, mes, ano).
func (r *RelatorioService) Dashboard(ctx context.Context, userID, periodo string) (*DashboardResumo, error) {
	servicos, err := r.servicos.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	servicos = filtrarPorPeriodo(servicos, periodo, time.Now())

	var aprovados, pendentes, recusados []domain.Servico
	for _, s := range servicos {
		switch s.Status {
		case domain.StatusAprovado, domain.StatusPropostaValidada, domain.StatusConcluido:
			aprovados = append(aprovados, s)
		case domain.StatusLead, domain.StatusPropostaEnviada,
			domain.StatusAguardandoCliente, domain.StatusAndamento:
			pendentes = append(pendentes, s)
		case domain.StatusRecusado, domain.StatusCancelado:
			recusados = append(recusados, s)
		}
	}

	resumo := &DashboardResumo{
		Aprovados: len(aprovados),
		Pendentes: len(pendentes),
		Recusados: len(recusados),
	}

	agora := time.Now()
	receitaPorMes := make(map[int]float64)
	for _, s := range aprovados {
		resumo.ReceitaTotal += s.ValorOrcamento
		if s.CreatedAt.Month() == agora.Month() && s.CreatedAt.Year() == agora.Year() {
			resumo.ReceitaMes += s.ValorOrcamento
		}
		receitaPorMes[int(s.CreatedAt.Month())-1] += s.ValorOrcamento
	}

	for i, mes := range nomesMeses {
		resumo.GraficoMensal = append(resumo.GraficoMensal, ReceitaMensal{
			Mes:     mes,
			Receita: receitaPorMes[i],
		})
	}

	resumo.GraficoStatus = []StatusContagem{
		{Name: "Aprovados", Valor: len(aprovados)},
		{Name: "Pendentes", Valor: len(pendentes)},
		{Name: "Recusados", Valor: len(recusados)},
	}

	// A lista vem ordenada do mais novo para o mais antigo.
	recentes := servicos
	if len(recentes) > 5 {
		recentes = recentes[:5]
	}
	resumo.OrcamentosRecentes = recentes

	return resumo, nil
}

// Clientes agrupa os serviços da conta por cliente, somando orçado, custo e
// lucro, ordenado por quem mais gerou receita.
func (r *RelatorioService) Clientes(ctx context.Context, userID, busca string) ([]ClienteResumo, error) {
	servicos, err := r.servicos.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	agrupado := make(map[string]*ClienteResumo)
	for _, s := range servicos {
		nome := s.Cliente
		if nome == "" {
			nome = "Sem nome"
		}
		c, ok := agrupado[nome]
		if !ok {
			c = &ClienteResumo{Nome: nome}
			agrupado[nome] = c
		}
		c.TotalServicos++
		c.TotalOrcado += s.ValorOrcamento
		c.TotalCusto += s.Custo
		c.TotalLucro += s.ValorOrcamento - s.Custo
	}

	busca = strings.ToLower(busca)
	lista := make([]ClienteResumo, 0, len(agrupado))
	for _, c := range agrupado {
		if busca != "" && !strings.Contains(strings.ToLower(c.Nome), busca) {
			continue
		}
		lista = append(lista, *c)
	}
	sort.Slice(lista, func(i, j int) bool {
		return lista[i].TotalOrcado > lista[j].TotalOrcado
	})
	return lista, nil
}

// Comissoes monta o relatório de comissões sobre as vendas concluídas.
// O parâmetro data (AAAA-MM-DD) filtra um dia específico e tem prioridade
// sobre o período.
func (r *RelatorioService) Comissoes(ctx context.Context, userID, periodo, data string) (*ComissoesResumo, error) {
	concluidos, err := r.concluidos(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data != "" {
		dia, err := time.Parse("2006-01-02", data)
		if err != nil {
			return nil, ErrDadosInvalidos
		}
		filtrados := concluidos[:0]
		for _, s := range concluidos {
			if mesmoDia(s.CreatedAt, dia) {
				filtrados = append(filtrados, s)
			}
		}
		concluidos = filtrados
	} else {
		concluidos = filtrarPorPeriodo(concluidos, periodo, time.Now())
	}

	resumo := &ComissoesResumo{Itens: make([]ComissaoItem, 0, len(concluidos))}
	for _, s := range concluidos {
		valor := s.ComissaoCalculada()
		resumo.Itens = append(resumo.Itens, ComissaoItem{Servico: s, ComissaoCalculada: valor})
		resumo.Total += valor
		if s.ComissaoPaga {
			resumo.TotalPago += valor
		} else {
			resumo.TotalPendente += valor
		}
	}
	return resumo, nil
}

// Equipe agrupa as vendas concluídas por responsável.
func (r *RelatorioService) Equipe(ctx context.Context, userID, periodo string) ([]ResponsavelResumo, error) {
	concluidos, err := r.concluidos(ctx, userID)
	if err != nil {
		return nil, err
	}
	concluidos = filtrarPorPeriodo(concluidos, periodo, time.Now())

	agrupado := make(map[string]*ResponsavelResumo)
	for _, s := range concluidos {
		nome := s.Responsavel
		if nome == "" {
			nome = "Sem responsável"
		}
		resp, ok := agrupado[nome]
		if !ok {
			resp = &ResponsavelResumo{Responsavel: nome}
			agrupado[nome] = resp
		}
		resp.TotalVendas++
		resp.TotalReceita += s.ValorOrcamento
		resp.TotalComissao += s.ComissaoCalculada()
	}

	lista := make([]ResponsavelResumo, 0, len(agrupado))
	for _, resp := range agrupado {
		lista = append(lista, *resp)
	}
	sort.Slice(lista, func(i, j int) bool {
		return lista[i].TotalReceita > lista[j].TotalReceita
	})
	return lista, nil
}

// Vendas lista as vendas concluídas com filtros de período e busca.
func (r *RelatorioService) Vendas(ctx context.Context, userID, periodo, busca string) ([]domain.Servico, error) {
	concluidos, err := r.concluidos(ctx, userID)
	if err != nil {
		return nil, err
	}
	concluidos = filtrarPorPeriodo(concluidos, periodo, time.Now())

	if busca == "" {
		return concluidos, nil
	}
	busca = strings.ToLower(busca)
	filtrados := make([]domain.Servico, 0, len(concluidos))
	for _, s := range concluidos {
		if strings.Contains(strings.ToLower(s.Cliente), busca) {
			filtrados = append(filtrados, s)
		}
	}
	return filtrados, nil
}

func (r *RelatorioService) concluidos(ctx context.Context, userID string) ([]domain.Servico, error) {
	servicos, err := r.servicos.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	concluidos := make([]domain.Servico, 0, len(servicos))
	for _, s := range servicos {
		if s.Status == domain.StatusConcluido {
			concluidos = append(concluidos, s)
		}
	}
	return concluidos, nil
}

// filtrarPorPeriodo aplica o mesmo recorte de datas que as telas usavam:
// hoje, 7dias, 30dias, mes (mês corrente) e ano. Vazio ou desconhecido não
// filtra nada.
func filtrarPorPeriodo(servicos []domain.Servico, periodo string, agora time.Time) []domain.Servico {
	if periodo == "" || periodo == "tudo" {
		return servicos
	}

	filtrados := make([]domain.Servico, 0, len(servicos))
	for _, s := range servicos {
		d := s.CreatedAt
		ok := true
		switch periodo {
		case "hoje":
			ok = mesmoDia(d, agora)
		case "7dias":
			ok = !d.Before(agora.AddDate(0, 0, -7))
		case "30dias":
			ok = !d.Before(agora.AddDate(0, 0, -30))
		case "mes":
			ok = d.Month() == agora.Month() && d.Year() == agora.Year()
		case "ano":
			ok = d.Year() == agora.Year()
		}
		if ok {
			filtrados = append(filtrados, s)
		}
	}
	return filtrados
}

func mesmoDia(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
