package connecting

import "errors"

// Erros específicos do vínculo de contas Amazon Ads
var (
	ErrConnectionNotFound = errors.New("conexão não encontrada")
	ErrNotOwner           = errors.New("conexão pertence a outro usuário")
	ErrNoProfiles         = errors.New("nenhum profile de anunciante disponível para a conta autorizada")
)
