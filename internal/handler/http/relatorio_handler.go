package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowdeskhq/flowdesk/internal/domain"
	"github.com/flowdeskhq/flowdesk/internal/service"
)

// RelatorioService é a interface que o handler de relatórios espera.
type RelatorioService interface {
	Dashboard(ctx context.Context, userID, periodo string) (*service.DashboardResumo, error)
	Clientes(ctx context.Context, userID, busca string) ([]service.ClienteResumo, error)
	Comissoes(ctx context.Context, userID, periodo, data string) (*service.ComissoesResumo, error)
	Equipe(ctx context.Context, userID, periodo string) ([]service.ResponsavelResumo, error)
	Vendas(ctx context.Context, userID, periodo, busca string) ([]domain.Servico, error)
}

// RelatorioHandler serve os dados agregados do dashboard e dos relatórios.
// Só devolve JSON — gráfico, PDF e planilha são problema do frontend.
type RelatorioHandler struct {
	service RelatorioService
}

// NewRelatorioHandler cria uma nova instância do RelatorioHandler.
func NewRelatorioHandler(s RelatorioService) *RelatorioHandler {
	return &RelatorioHandler{service: s}
}

// Routes define e retorna todas as rotas que este handler gerencia.
func (h *RelatorioHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/dashboard", h.Dashboard)
	r.Get("/clientes", h.Clientes)
	r.Get("/comissoes", h.Comissoes)
	r.Get("/equipe", h.Equipe)
	r.Get("/vendas", h.Vendas)

	return r
}

// @Summary      Resumo do dashboard
// @Description  Contagens por status, receita total e do mês, gráfico mensal e orçamentos recentes
// @Tags         relatorios
// @Produce      json
// @Param        id       path      string  true   "ID da conta"
// @Param        periodo  query     string  false  "hoje, 7dias, 30dias, mes ou ano"
// @Success      200      {object}  service.DashboardResumo
// @Failure      500      {object}  map[string]string
// @Router       /api/perfis/{id}/relatorios/dashboard [get]
func (h *RelatorioHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	periodo := r.URL.Query().Get("periodo")

	resumo, err := h.service.Dashboard(r.Context(), userID, periodo)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Erro ao montar dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, resumo)
}

// @Summary      Relatório de clientes
// @Description  Serviços agrupados por cliente com orçado, custo e lucro
// @Tags         relatorios
// @Produce      json
// @Param        id     path      string  true   "ID da conta"
// @Param        busca  query     string  false  "Busca por nome"
// @Success      200    {array}   service.ClienteResumo
// @Failure      500    {object}  map[string]string
// @Router       /api/perfis/{id}/relatorios/clientes [get]
func (h *RelatorioHandler) Clientes(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	busca := r.URL.Query().Get("busca")

	clientes, err := h.service.Clientes(r.Context(), userID, busca)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Erro ao buscar clientes")
		return
	}
	respondWithJSON(w, http.StatusOK, clientes)
}

// @Summary      Relatório de comissões
// @Description  Comissões das vendas concluídas, com totais pago/pendente
// @Tags         relatorios
// @Produce      json
// @Param        id       path      string  true   "ID da conta"
// @Param        periodo  query     string  false  "hoje, 7dias, 30dias ou mes"
// @Param        data     query     string  false  "Dia específico (AAAA-MM-DD)"
// @Success      200      {object}  service.ComissoesResumo
// @Failure      400      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /api/perfis/{id}/relatorios/comissoes [get]
func (h *RelatorioHandler) Comissoes(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	periodo := r.URL.Query().Get("periodo")
	data := r.URL.Query().Get("data")

	resumo, err := h.service.Comissoes(r.Context(), userID, periodo, data)
	if err != nil {
		if errors.Is(err, service.ErrDadosInvalidos) {
			respondWithError(w, http.StatusBadRequest, "Data inválida")
		} else {
			respondWithError(w, http.StatusInternalServerError, "Erro ao buscar comissões")
		}
		return
	}
	respondWithJSON(w, http.StatusOK, resumo)
}

// @Summary      Relatório da equipe
// @Description  Vendas concluídas agrupadas por responsável
// @Tags         relatorios
// @Produce      json
// @Param        id       path      string  true   "ID da conta"
// @Param        periodo  query     string  false  "hoje, 7dias, 30dias ou mes"
// @Success      200      {array}   service.ResponsavelResumo
// @Failure      500      {object}  map[string]string
// @Router       /api/perfis/{id}/relatorios/equipe [get]
func (h *RelatorioHandler) Equipe(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	periodo := r.URL.Query().Get("periodo")

	equipe, err := h.service.Equipe(r.Context(), userID, periodo)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Erro ao buscar equipe")
		return
	}
	respondWithJSON(w, http.StatusOK, equipe)
}

// @Summary      Relatório de vendas
// @Description  Vendas concluídas com filtros de período e busca por cliente
// @Tags         relatorios
// @Produce      json
// @Param        id       path      string  true   "ID da conta"
// @Param        periodo  query     string  false  "hoje, 7dias, 30dias ou mes"
// @Param        busca    query     string  false  "Busca por cliente"
// @Success      200      {array}   domain.Servico
// @Failure      500      {object}  map[string]string
// @Router       /api/perfis/{id}/relatorios/vendas [get]
func (h *RelatorioHandler) Vendas(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	periodo := r.URL.Query().Get("periodo")
	busca := r.URL.Query().Get("busca")

	vendas, err := h.service.Vendas(r.Context(), userID, periodo, busca)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Erro ao buscar vendas")
		return
	}
	if vendas == nil {
		vendas = []domain.Servico{}
	}
	respondWithJSON(w, http.StatusOK, vendas)
}
