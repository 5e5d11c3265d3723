package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowdeskhq/flowdesk/internal/domain"
	"github.com/flowdeskhq/flowdesk/internal/repository"
)

// ServicoService encapsula a regra de negócio de leads/orçamentos/serviços.
type ServicoService struct {
	servicos repository.ServicoRepository
	perfis   repository.PerfilRepository
}

// NewServicoService cria uma nova instância do ServicoService.
func NewServicoService(servicos repository.ServicoRepository, perfis repository.PerfilRepository) *ServicoService {
	return &ServicoService{servicos: servicos, perfis: perfis}
}

// CriarServico cria um novo lead/orçamento para a conta. Contas no plano
// free só podem ter LimiteServicosFree serviços — acima disso a criação é
// bloqueada e o frontend mostra a tela de upgrade.
func (s *ServicoService) CriarServico(ctx context.Context, userID string, servico domain.Servico) (*domain.Servico, error) {
	if userID == "" || servico.Cliente == "" {
		return nil, ErrDadosInvalidos
	}
	if servico.Status == "" {
		servico.Status = domain.StatusLead
	}
	if !domain.StatusValido(servico.Status) {
		return nil, ErrStatusInvalido
	}

	perfil, err := s.perfis.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if perfil == nil {
		return nil, ErrPerfilNaoEncontrado
	}

	if perfil.Plan == domain.PlanFree {
		total, err := s.servicos.CountByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if total >= domain.LimiteServicosFree {
			return nil, ErrLimitePlanoFree
		}
	}

	servico.ID = uuid.NewString()
	servico.UserID = userID
	if servico.NumeroOS == "" {
		servico.NumeroOS = fmt.Sprintf("OS-%d", time.Now().UnixMilli())
	}
	servico.CreatedAt = time.Now().UTC()

	if err := s.servicos.Create(ctx, servico); err != nil {
		return nil, err
	}
	return &servico, nil
}

// ListarServicos lista os serviços da conta, do mais novo para o mais
// antigo, com filtros opcionais de status e busca por cliente.
func (s *ServicoService) ListarServicos(ctx context.Context, userID, status, busca string) ([]domain.Servico, error) {
	servicos, err := s.servicos.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if status == "" && busca == "" {
		return servicos, nil
	}

	busca = strings.ToLower(busca)
	filtrados := make([]domain.Servico, 0, len(servicos))
	for _, sv := range servicos {
		if status != "" && sv.Status != status {
			continue
		}
		if busca != "" && !strings.Contains(strings.ToLower(sv.Cliente), busca) {
			continue
		}
		filtrados = append(filtrados, sv)
	}
	return filtrados, nil
}

// BuscarServico retorna um serviço da conta.
func (s *ServicoService) BuscarServico(ctx context.Context, userID, id string) (*domain.Servico, error) {
	return s.buscarDoUsuario(ctx, userID, id)
}

// AtualizarServico atualiza os campos editáveis de um serviço.
func (s *ServicoService) AtualizarServico(ctx context.Context, userID, id string, servico domain.Servico) error {
	if servico.Cliente == "" {
		return ErrDadosInvalidos
	}
	if servico.Status != "" && !domain.StatusValido(servico.Status) {
		return ErrStatusInvalido
	}
	atual, err := s.buscarDoUsuario(ctx, userID, id)
	if err != nil {
		return err
	}
	if servico.Status == "" {
		servico.Status = atual.Status
	}
	return s.servicos.Update(ctx, id, servico)
}

// MoverStatus move o serviço de coluna no pipeline.
func (s *ServicoService) MoverStatus(ctx context.Context, userID, id, status string) error {
	if !domain.StatusValido(status) {
		return ErrStatusInvalido
	}
	if _, err := s.buscarDoUsuario(ctx, userID, id); err != nil {
		return err
	}
	return s.servicos.UpdateStatus(ctx, id, status)
}

// MarcarComissaoPaga marca a comissão do serviço como paga.
func (s *ServicoService) MarcarComissaoPaga(ctx context.Context, userID, id string) error {
	if _, err := s.buscarDoUsuario(ctx, userID, id); err != nil {
		return err
	}
	return s.servicos.MarcarComissaoPaga(ctx, id)
}

// RemoverServico apaga o serviço.
func (s *ServicoService) RemoverServico(ctx context.Context, userID, id string) error {
	if _, err := s.buscarDoUsuario(ctx, userID, id); err != nil {
		return err
	}
	return s.servicos.Delete(ctx, id)
}

// buscarDoUsuario garante que o serviço existe E pertence à conta — um id
// de outra conta responde como não encontrado, sem vazar a existência.
func (s *ServicoService) buscarDoUsuario(ctx context.Context, userID, id string) (*domain.Servico, error) {
	servico, err := s.servicos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if servico == nil || servico.UserID != userID {
		return nil, ErrServicoNaoEncontrado
	}
	return servico, nil
}
