package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/flowdeskhq/flowdesk/internal/service"
)

// AssinaturaService é a interface que o handler de billing espera.
// Depender da interface (e não do serviço concreto) facilita os testes.
type AssinaturaService interface {
	CriarCheckoutSession(ctx context.Context, userID, email string) (string, error)
	ProcessarWebhook(ctx context.Context, payload []byte, signature string) error
}

// AssinaturaHandler lida com o checkout de upgrade e o webhook da Stripe.
type AssinaturaHandler struct {
	service AssinaturaService
}

// NewAssinaturaHandler cria uma nova instância do AssinaturaHandler.
func NewAssinaturaHandler(s AssinaturaService) *AssinaturaHandler {
	return &AssinaturaHandler{service: s}
}

type checkoutRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// @Summary      Cria uma sessão de checkout na Stripe
// @Description  Gera a URL de pagamento do upgrade; assinantes ativos recebem a URL do portal de billing
// @Tags         assinaturas
// @Accept       json
// @Produce      json
// @Param        body  body      checkoutRequest  true  "Conta e email do solicitante"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/checkout [post]
func (h *AssinaturaHandler) CriarCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Dados inválidos")
		return
	}

	url, err := h.service.CriarCheckoutSession(r.Context(), req.UserID, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrDadosInvalidos) {
			respondWithError(w, http.StatusBadRequest, "Dados inválidos")
		} else {
			respondWithError(w, http.StatusInternalServerError, "Erro ao criar sessão de checkout")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Webhook recebe os eventos da Stripe. O corpo precisa ser lido cru: a
// assinatura é calculada sobre os bytes exatos recebidos, não sobre um
// objeto re-serializado.
//
// @Summary      Webhook da Stripe
// @Description  Recebe os eventos de ciclo de vida da assinatura e reconcilia o perfil
// @Tags         assinaturas
// @Success      200  {string}  string "OK"
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/webhook [post]
func (h *AssinaturaHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536) // Limite de 64KB
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Erro ao ler o corpo do webhook", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Erro ao ler corpo da requisição")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		respondWithError(w, http.StatusBadRequest, "Assinatura ausente")
		return
	}

	if err := h.service.ProcessarWebhook(r.Context(), payload, signature); err != nil {
		if errors.Is(err, service.ErrAssinaturaWebhook) {
			respondWithError(w, http.StatusBadRequest, "Falha na verificação da assinatura do webhook")
		} else {
			// 5xx sinaliza à Stripe para reentregar o evento mais tarde.
			respondWithError(w, http.StatusInternalServerError, "Erro interno ao processar webhook")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}
