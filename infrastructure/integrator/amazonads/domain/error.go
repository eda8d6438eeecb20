package domain

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitedError indica resposta 429 da Amazon Ads API. RetryAfter carrega
// o valor do header Retry-After quando o servidor o informa
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("requisição limitada pela Amazon Ads API, aguardar %s", e.RetryAfter)
	}
	return "requisição limitada pela Amazon Ads API"
}

// DuplicateReportError indica resposta 425: já existe um relatório com a
// mesma configuração dentro da janela de deduplicação da plataforma
type DuplicateReportError struct {
	ExistingReportID string
}

func (e *DuplicateReportError) Error() string {
	return fmt.Sprintf("relatório duplicado, id existente: %s", e.ExistingReportID)
}

// UnauthorizedError indica resposta 401 (access token inválido ou expirado)
type UnauthorizedError struct {
	Body string
}

func (e *UnauthorizedError) Error() string {
	return "access token rejeitado pela Amazon Ads API"
}

// APIError cobre as demais respostas de erro. Transient indica se a falha
// pode ser resolvida com nova tentativa (5xx e falhas de rede)
type APIError struct {
	StatusCode int
	Body       string
	Transient  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("erro na resposta da Amazon Ads API. Status: %d, Corpo: %s", e.StatusCode, e.Body)
}

// IsRateLimited extrai um RateLimitedError da cadeia de erros
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// IsDuplicateReport extrai um DuplicateReportError da cadeia de erros
func IsDuplicateReport(err error) (*DuplicateReportError, bool) {
	var dup *DuplicateReportError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}

// IsUnauthorized informa se o erro veio de uma resposta 401
func IsUnauthorized(err error) bool {
	var ua *UnauthorizedError
	return errors.As(err, &ua)
}

// IsTransient informa se o erro merece nova tentativa sob a política de
// backoff (5xx, falha de rede ou rate limit)
func IsTransient(err error) bool {
	if _, ok := IsRateLimited(err); ok {
		return true
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.Transient
	}
	return false
}
