package service

import "errors"

// Erros de negócio expostos aos handlers. Os handlers fazem switch sobre
// eles para escolher o status HTTP; a mensagem externa é sempre genérica.
var (
	ErrDadosInvalidos       = errors.New("dados inválidos")
	ErrPerfilNaoEncontrado  = errors.New("perfil não encontrado")
	ErrServicoNaoEncontrado = errors.New("serviço não encontrado")
	ErrStatusInvalido       = errors.New("status de serviço inválido")
	ErrTelefoneInvalido     = errors.New("telefone inválido")
	ErrLimitePlanoFree      = errors.New("limite de serviços do plano free atingido")
	ErrAssinaturaWebhook    = errors.New("falha na verificação da assinatura do webhook")
)
