package vault

import (
	"errors"
	"fmt"
)

// Erros específicos do vault de credenciais
var (
	ErrDecryption = errors.New("falha ao descriptografar envelope")
	ErrAuth       = errors.New("falha ao renovar credenciais")
)

// DecryptionError indica envelope adulterado, truncado ou emitido por uma
// chave já removida da configuração
type DecryptionError struct {
	Details string
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDecryption.Error(), e.Details)
}

func (e *DecryptionError) Unwrap() error {
	return ErrDecryption
}

func NewDecryptionError(details string) *DecryptionError {
	return &DecryptionError{Details: details}
}

// AuthError indica que o refresh token foi rejeitado pela plataforma
type AuthError struct {
	Err          error
	ConnectionID string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s (conexão %s): %s", ErrAuth.Error(), e.ConnectionID, e.Err.Error())
}

func (e *AuthError) Unwrap() error {
	return ErrAuth
}

func NewAuthError(err error, connectionID string) *AuthError {
	return &AuthError{Err: err, ConnectionID: connectionID}
}
