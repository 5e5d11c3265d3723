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

// PerfilService é a interface que o handler de perfis espera.
type PerfilService interface {
	CriarPerfil(ctx context.Context, id, email string) (*domain.Perfil, error)
	BuscarPerfil(ctx context.Context, id string) (*domain.Perfil, error)
	AtualizarConfiguracoes(ctx context.Context, id, nomeEmpresa, telefone string) error
}

// PerfilHandler lida com as requisições HTTP de /api/perfis.
type PerfilHandler struct {
	service PerfilService
}

// NewPerfilHandler cria uma nova instância do PerfilHandler.
func NewPerfilHandler(s PerfilService) *PerfilHandler {
	return &PerfilHandler{service: s}
}

type criarPerfilRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type configuracoesRequest struct {
	NomeEmpresa string `json:"nome_empresa"`
	Telefone    string `json:"telefone"`
}

// @Summary      Cria o perfil de uma conta
// @Description  Registra o perfil no cadastro da conta (plano free, sem assinatura)
// @Tags         perfis
// @Accept       json
// @Produce      json
// @Param        perfil  body      criarPerfilRequest  true  "Identidade da conta"
// @Success      201     {object}  domain.Perfil
// @Failure      400     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/perfis [post]
func (h *PerfilHandler) CriarPerfil(w http.ResponseWriter, r *http.Request) {
	var req criarPerfilRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	perfil, err := h.service.CriarPerfil(r.Context(), req.ID, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrDadosInvalidos) {
			respondWithError(w, http.StatusBadRequest, err.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Erro ao criar perfil")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, perfil)
}

// @Summary      Busca o perfil de uma conta
// @Tags         perfis
// @Produce      json
// @Param        id   path      string  true  "ID da conta"
// @Success      200  {object}  domain.Perfil
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/perfis/{id} [get]
func (h *PerfilHandler) BuscarPerfil(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	perfil, err := h.service.BuscarPerfil(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPerfilNaoEncontrado) {
			respondWithError(w, http.StatusNotFound, err.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Erro ao buscar perfil")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, perfil)
}

// @Summary      Atualiza as configurações da conta
// @Description  Salva nome da empresa e telefone (validado como número brasileiro)
// @Tags         perfis
// @Accept       json
// @Produce      json
// @Param        id      path      string                true  "ID da conta"
// @Param        config  body      configuracoesRequest  true  "Configurações"
// @Success      204     {string}  string "No Content"
// @Failure      400     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/perfis/{id}/configuracoes [put]
func (h *PerfilHandler) AtualizarConfiguracoes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req configuracoesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	err := h.service.AtualizarConfiguracoes(r.Context(), id, req.NomeEmpresa, req.Telefone)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPerfilNaoEncontrado):
			respondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrDadosInvalidos), errors.Is(err, service.ErrTelefoneInvalido):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Erro ao salvar configurações")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
