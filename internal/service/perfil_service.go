package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/flowdeskhq/flowdesk/internal/domain"
	"github.com/flowdeskhq/flowdesk/internal/repository"
)

// PerfilService cuida do cadastro e das configurações da conta.
type PerfilService struct {
	perfis repository.PerfilRepository
}

// NewPerfilService cria uma nova instância do PerfilService.
func NewPerfilService(perfis repository.PerfilRepository) *PerfilService {
	return &PerfilService{perfis: perfis}
}

// CriarPerfil registra o perfil de uma conta recém-criada: plano free,
// sem nenhum campo de pagamento preenchido.
func (s *PerfilService) CriarPerfil(ctx context.Context, id, email string) (*domain.Perfil, error) {
	if id == "" || email == "" {
		return nil, ErrDadosInvalidos
	}

	perfil := domain.Perfil{
		ID:                 id,
		Email:              email,
		Plan:               domain.PlanFree,
		SubscriptionStatus: domain.SubscriptionStatusNone,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.perfis.Create(ctx, perfil); err != nil {
		return nil, err
	}
	return &perfil, nil
}

// BuscarPerfil retorna o perfil da conta (a tela de billing usa o plan).
func (s *PerfilService) BuscarPerfil(ctx context.Context, id string) (*domain.Perfil, error) {
	perfil, err := s.perfis.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if perfil == nil {
		return nil, ErrPerfilNaoEncontrado
	}
	return perfil, nil
}

// AtualizarConfiguracoes salva nome da empresa e telefone. O telefone é
// validado como número brasileiro e guardado só com os dígitos.
func (s *PerfilService) AtualizarConfiguracoes(ctx context.Context, id, nomeEmpresa, telefone string) error {
	nomeEmpresa = strings.TrimSpace(nomeEmpresa)
	if nomeEmpresa == "" {
		return ErrDadosInvalidos
	}
	if !TelefoneValido(telefone) {
		return ErrTelefoneInvalido
	}
	if _, err := s.BuscarPerfil(ctx, id); err != nil {
		return err
	}
	return s.perfis.UpdateConfiguracoes(ctx, id, nomeEmpresa, somenteDigitos(telefone))
}

var naoDigitos = regexp.MustCompile(`\D`)

func somenteDigitos(valor string) string {
	return naoDigitos.ReplaceAllString(valor, "")
}

// TelefoneValido valida um telefone brasileiro: 10 ou 11 dígitos, DDD não
// começando com 0, celular com 9 na terceira posição e sem sequências de
// um dígito só repetido.
func TelefoneValido(valor string) bool {
	numero := somenteDigitos(valor)

	if len(numero) < 10 || len(numero) > 11 {
		return false
	}

	repetido := true
	for i := 1; i < len(numero); i++ {
		if numero[i] != numero[0] {
			repetido = false
			break
		}
	}
	if repetido {
		return false
	}

	if numero[0] == '0' {
		return false
	}

	if len(numero) == 11 && numero[2] != '9' {
		return false
	}

	return true
}
