package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowdeskhq/flowdesk/internal/domain"
	"github.com/flowdeskhq/flowdesk/internal/service"
)

// ServicoService é a interface que o handler de serviços espera.
type ServicoService interface {
	CriarServico(ctx context.Context, userID string, servico domain.Servico) (*domain.Servico, error)
	ListarServicos(ctx context.Context, userID, status, busca string) ([]domain.Servico, error)
	BuscarServico(ctx context.Context, userID, id string) (*domain.Servico, error)
	AtualizarServico(ctx context.Context, userID, id string, servico domain.Servico) error
	MoverStatus(ctx context.Context, userID, id, status string) error
	MarcarComissaoPaga(ctx context.Context, userID, id string) error
	RemoverServico(ctx context.Context, userID, id string) error
}

// ServicoHandler lida com leads/orçamentos/serviços de uma conta.
// As rotas são montadas sob /api/perfis/{id}/servicos — o {id} da conta vem
// do roteador pai.
type ServicoHandler struct {
	service ServicoService
}

// NewServicoHandler cria uma nova instância do ServicoHandler.
func NewServicoHandler(s ServicoService) *ServicoHandler {
	return &ServicoHandler{service: s}
}

// Routes define e retorna todas as rotas que este handler gerencia.
func (h *ServicoHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CriarServico)
	r.Get("/", h.ListarServicos)
	r.Get("/{servicoID}", h.BuscarServico)
	r.Put("/{servicoID}", h.AtualizarServico)
	r.Patch("/{servicoID}/status", h.MoverStatus)
	r.Post("/{servicoID}/comissao-paga", h.MarcarComissaoPaga)
	r.Delete("/{servicoID}", h.RemoverServico)

	return r
}

// @Summary      Cria um lead/orçamento
// @Description  Cria um novo serviço no funil; contas free têm limite de 5 serviços
// @Tags         servicos
// @Accept       json
// @Produce      json
// @Param        id       path      string          true  "ID da conta"
// @Param        servico  body      domain.Servico  true  "Dados do serviço"
// @Success      201      {object}  domain.Servico
// @Failure      400      {object}  map[string]string
// @Failure      402      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /api/perfis/{id}/servicos [post]
func (h *ServicoHandler) CriarServico(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var servico domain.Servico
	if err := json.NewDecoder(r.Body).Decode(&servico); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	criado, err := h.service.CriarServico(r.Context(), userID, servico)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDadosInvalidos), errors.Is(err, service.ErrStatusInvalido):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPerfilNaoEncontrado):
			respondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrLimitePlanoFree):
			// 402 sinaliza ao frontend a tela de upgrade.
			respondWithError(w, http.StatusPaymentRequired, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Erro ao criar serviço")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, criado)
}

// @Summary      Lista os serviços da conta
// @Tags         servicos
// @Produce      json
// @Param        id      path      string  true   "ID da conta"
// @Param        status  query     string  false  "Filtra por status do funil"
// @Param        busca   query     string  false  "Busca por cliente"
// @Success      200     {array}   domain.Servico
// @Failure      500     {object}  map[string]string
// @Router       /api/perfis/{id}/servicos [get]
func (h *ServicoHandler) ListarServicos(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	status := r.URL.Query().Get("status")
	busca := r.URL.Query().Get("busca")

	servicos, err := h.service.ListarServicos(r.Context(), userID, status, busca)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Erro ao buscar serviços")
		return
	}
	if servicos == nil {
		servicos = []domain.Servico{}
	}
	respondWithJSON(w, http.StatusOK, servicos)
}

// @Summary      Busca um serviço por ID
// @Tags         servicos
// @Produce      json
// @Param        id         path      string  true  "ID da conta"
// @Param        servicoID  path      string  true  "ID do serviço"
// @Success      200        {object}  domain.Servico
// @Failure      404        {object}  map[string]string
// @Failure      500        {object}  map[string]string
// @Router       /api/perfis/{id}/servicos/{servicoID} [get]
func (h *ServicoHandler) BuscarServico(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	servicoID := chi.URLParam(r, "servicoID")

	servico, err := h.service.BuscarServico(r.Context(), userID, servicoID)
	if err != nil {
		if errors.Is(err, service.ErrServicoNaoEncontrado) {
			respondWithError(w, http.StatusNotFound, err.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Erro ao buscar serviço")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, servico)
}

// @Summary      Atualiza um serviço
// @Tags         servicos
// @Accept       json
// @Produce      json
// @Param        id         path      string          true  "ID da conta"
// @Param        servicoID  path      string          true  "ID do serviço"
// @Param        servico    body      domain.Servico  true  "Dados do serviço"
// @Success      204        {string}  string "No Content"
// @Failure      400        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Failure      500        {object}  map[string]string
// @Router       /api/perfis/{id}/servicos/{servicoID} [put]
func (h *ServicoHandler) AtualizarServico(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	servicoID := chi.URLParam(r, "servicoID")

	var servico domain.Servico
	if err := json.NewDecoder(r.Body).Decode(&servico); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	err := h.service.AtualizarServico(r.Context(), userID, servicoID, servico)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrServicoNaoEncontrado):
			respondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrDadosInvalidos), errors.Is(err, service.ErrStatusInvalido):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Erro ao atualizar serviço")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type moverStatusRequest struct {
	Status string `json:"status"`
}

// @Summary      Move o serviço no pipeline
// @Description  Troca a coluna/status do serviço no funil de vendas
// @Tags         servicos
// @Accept       json
// @Produce      json
// @Param        id         path      string              true  "ID da conta"
// @Param        servicoID  path      string              true  "ID do serviço"
// @Param        status     body      moverStatusRequest  true  "Novo status"
// @Success      204        {string}  string "No Content"
// @Failure      400        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Failure      500        {object}  map[string]string
// @Router       /api/perfis/{id}/servicos/{servicoID}/status [patch]
func (h *ServicoHandler) MoverStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	servicoID := chi.URLParam(r, "servicoID")

	var req moverStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	err := h.service.MoverStatus(r.Context(), userID, servicoID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrServicoNaoEncontrado):
			respondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrStatusInvalido):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Erro ao mover serviço")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Marca a comissão como paga
// @Tags         servicos
// @Produce      json
// @Param        id         path      string  true  "ID da conta"
// @Param        servicoID  path      string  true  "ID do serviço"
// @Success      204        {string}  string "No Content"
// @Failure      404        {object}  map[string]string
// @Failure      500        {object}  map[string]string
// @Router       /api/perfis/{id}/servicos/{servicoID}/comissao-paga [post]
func (h *ServicoHandler) MarcarComissaoPaga(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	servicoID := chi.URLParam(r, "servicoID")

	err := h.service.MarcarComissaoPaga(r.Context(), userID, servicoID)
	if err != nil {
		if errors.Is(err, service.ErrServicoNaoEncontrado) {
			respondWithError(w, http.StatusNotFound, err.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Erro ao marcar comissão")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Deleta um serviço
// @Tags         servicos
// @Produce      json
// @Param        id         path      string  true  "ID da conta"
// @Param        servicoID  path      string  true  "ID do serviço"
// @Success      204        {string}  string "No Content"
// @Failure      404        {object}  map[string]string
// @Failure      500        {object}  map[string]string
// @Router       /api/perfis/{id}/servicos/{servicoID} [delete]
func (h *ServicoHandler) RemoverServico(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	servicoID := chi.URLParam(r, "servicoID")

	err := h.service.RemoverServico(r.Context(), userID, servicoID)
	if err != nil {
		if errors.Is(err, service.ErrServicoNaoEncontrado) {
			respondWithError(w, http.StatusNotFound, err.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Erro ao deletar serviço")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
