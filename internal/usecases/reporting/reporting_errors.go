package reporting

import (
	"errors"
	"fmt"
)

// Erros específicos para o contexto de relatórios
var (
	// Erros de validação
	ErrValidation = errors.New("configuração de relatório inválida")

	// Erros de credenciais
	ErrAuth = errors.New("credenciais rejeitadas após tentativa de renovação")

	// Erros de orquestração
	ErrRateLimited  = errors.New("limite de requisições excedido até o prazo máximo")
	ErrTransientAPI = errors.New("erro na Amazon Ads API")
	ErrTimedOut     = errors.New("prazo máximo de polling excedido")
	ErrArtifact     = errors.New("artefato indisponível para download")
)

// ValidationError carrega o motivo da rejeição e, quando aplicável, o
// intervalo de datas ofensor. Falha antes de qualquer chamada de rede
type ValidationError struct {
	Details   string
	StartDate string
	EndDate   string
}

func (e *ValidationError) Error() string {
	if e.StartDate != "" || e.EndDate != "" {
		return fmt.Sprintf("%s: %s (%s..%s)", ErrValidation.Error(), e.Details, e.StartDate, e.EndDate)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Details)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(details string) *ValidationError {
	return &ValidationError{Details: details}
}

// ArtifactError indica tentativa de download fora da janela de validade da
// URL ou falha na descompressão do conteúdo
type ArtifactError struct {
	Details  string
	ReportID string
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s (relatório %s): %s", ErrArtifact.Error(), e.ReportID, e.Details)
}

func (e *ArtifactError) Unwrap() error {
	return ErrArtifact
}

func NewArtifactError(reportID, details string) *ArtifactError {
	return &ArtifactError{ReportID: reportID, Details: details}
}
