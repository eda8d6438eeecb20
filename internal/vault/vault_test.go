package vault

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	adsdomain "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/domain"
	clientmocks "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/mocks"
	repomocks "github.com/buffapp/amazon-ads-api/infrastructure/repository/mocks"
	"github.com/buffapp/amazon-ads-api/internal/config"
	"github.com/buffapp/amazon-ads-api/internal/domain"
)

func newTestVault(t *testing.T, ctrl *gomock.Controller) (*Vault, *clientmocks.MockClient, *repomocks.MockConnectionRepository) {
	client := clientmocks.NewMockClient(ctrl)
	connRepo := repomocks.NewMockConnectionRepository(ctrl)

	v, err := New(config.Vault{
		SecretKey:  "segredo-de-teste",
		KeyVersion: 2,
		RetiredKeys: []string{
			"1=segredo-antigo",
		},
	}, client, connRepo)
	assert.NoError(t, err)

	return v, client, connRepo
}

func TestVault_EncryptDecryptRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v, _, _ := newTestVault(t, ctrl)

	envelope, err := v.Encrypt("Atza|refresh-token-secreto")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(envelope, "v2:"))

	plaintext, err := v.Decrypt(envelope)
	assert.NoError(t, err)
	assert.Equal(t, "Atza|refresh-token-secreto", plaintext)

	// Dois envelopes do mesmo texto diferem pelo nonce aleatório
	other, err := v.Encrypt("Atza|refresh-token-secreto")
	assert.NoError(t, err)
	assert.NotEqual(t, envelope, other)
}

func TestVault_DecryptComChaveAposentada(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := clientmocks.NewMockClient(ctrl)
	connRepo := repomocks.NewMockConnectionRepository(ctrl)

	// Envelope emitido quando a chave 1 era a corrente
	oldVault, err := New(config.Vault{
		SecretKey:  "segredo-antigo",
		KeyVersion: 1,
	}, client, connRepo)
	assert.NoError(t, err)

	envelope, err := oldVault.Encrypt("token-antigo")
	assert.NoError(t, err)

	// A chave rotacionada ainda abre envelopes antigos via retired keys
	v, _, _ := newTestVault(t, ctrl)

	plaintext, err := v.Decrypt(envelope)
	assert.NoError(t, err)
	assert.Equal(t, "token-antigo", plaintext)
}

func TestVault_DecryptFalhas(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v, _, _ := newTestVault(t, ctrl)

	envelope, err := v.Encrypt("token")
	assert.NoError(t, err)

	tests := []struct {
		name     string
		envelope string
	}{
		{
			name:     "Envelope sem prefixo de versão",
			envelope: "nao-e-um-envelope",
		},
		{
			name:     "Versão de chave desconhecida",
			envelope: "v9:" + strings.SplitN(envelope, ":", 2)[1],
		},
		{
			name:     "Payload que não é base64",
			envelope: "v2:%%%nao-base64%%%",
		},
		{
			name:     "Envelope truncado",
			envelope: "v2:YWJj",
		},
		{
			name:     "Envelope adulterado falha na tag de autenticação",
			envelope: envelope[:len(envelope)-2] + "xx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Decrypt(tt.envelope)
			assert.ErrorIs(t, err, ErrDecryption)
		})
	}
}

func TestVault_EnsureFreshComTokenValidoNaoRenova(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v, _, connRepo := newTestVault(t, ctrl)

	encrypted, err := v.Encrypt("access-token-valido")
	assert.NoError(t, err)

	expiresAt := time.Now().Add(time.Hour)
	connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(&domain.Connection{
			ID:                   "conn-1",
			EncryptedAccessToken: encrypted,
			TokenExpiresAt:       &expiresAt,
		}, nil)

	token, err := v.EnsureFresh(context.Background(), "conn-1")

	assert.NoError(t, err)
	assert.Equal(t, "access-token-valido", token)
}

func TestVault_EnsureFreshRenovaTokenExpirado(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v, client, connRepo := newTestVault(t, ctrl)

	encryptedRefresh, err := v.Encrypt("refresh-token")
	assert.NoError(t, err)

	expiresAt := time.Now().Add(-time.Minute)
	conn := &domain.Connection{
		ID:                    "conn-1",
		EncryptedRefreshToken: encryptedRefresh,
		EncryptedAccessToken:  "v2:irrelevante",
		TokenExpiresAt:        &expiresAt,
	}

	// Lido duas vezes: antes e depois de adquirir o lock de renovação
	connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(conn, nil).
		Times(2)

	client.EXPECT().
		RefreshAccessToken(gomock.Any(), "refresh-token").
		Return(&adsdomain.TokenResponse{
			AccessToken:  "access-token-novo",
			RefreshToken: "refresh-token-novo",
			ExpiresIn:    3600,
		}, nil)

	var updated *domain.Connection
	connRepo.EXPECT().
		UpdateTokens(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, conn *domain.Connection) error {
			updated = conn
			return nil
		})

	token, err := v.EnsureFresh(context.Background(), "conn-1")

	assert.NoError(t, err)
	assert.Equal(t, "access-token-novo", token)

	// Ambos os tokens foram recriptografados e persistidos
	access, err := v.Decrypt(updated.EncryptedAccessToken)
	assert.NoError(t, err)
	assert.Equal(t, "access-token-novo", access)

	refresh, err := v.Decrypt(updated.EncryptedRefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, "refresh-token-novo", refresh)

	assert.NotNil(t, updated.TokenExpiresAt)
	assert.True(t, updated.TokenExpiresAt.After(time.Now()))
}

func TestVault_RefreshForcadoRenovaMesmoComExpiracaoLocalNoFuturo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v, client, connRepo := newTestVault(t, ctrl)

	encryptedAccess, err := v.Encrypt("access-token-revogado")
	assert.NoError(t, err)

	encryptedRefresh, err := v.Encrypt("refresh-token")
	assert.NoError(t, err)

	// A Amazon revogou o token do lado dela: a expiração registrada
	// localmente ainda está no futuro, mas o token já não serve
	expiresAt := time.Now().Add(time.Hour)
	connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(&domain.Connection{
			ID:                    "conn-1",
			EncryptedAccessToken:  encryptedAccess,
			EncryptedRefreshToken: encryptedRefresh,
			TokenExpiresAt:        &expiresAt,
		}, nil)

	client.EXPECT().
		RefreshAccessToken(gomock.Any(), "refresh-token").
		Return(&adsdomain.TokenResponse{
			AccessToken: "access-token-novo",
			ExpiresIn:   3600,
		}, nil)

	connRepo.EXPECT().
		UpdateTokens(gomock.Any(), gomock.Any()).
		Return(nil)

	token, err := v.Refresh(context.Background(), "conn-1")

	assert.NoError(t, err)
	assert.Equal(t, "access-token-novo", token)
}

func TestVault_RefreshTokenRejeitadoViraAuthError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v, client, connRepo := newTestVault(t, ctrl)

	encryptedRefresh, err := v.Encrypt("refresh-token-revogado")
	assert.NoError(t, err)

	expiresAt := time.Now().Add(-time.Minute)
	connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(&domain.Connection{
			ID:                    "conn-1",
			EncryptedRefreshToken: encryptedRefresh,
			TokenExpiresAt:        &expiresAt,
		}, nil)

	client.EXPECT().
		RefreshAccessToken(gomock.Any(), "refresh-token-revogado").
		Return(nil, &adsdomain.UnauthorizedError{})

	_, err = v.Refresh(context.Background(), "conn-1")

	assert.ErrorIs(t, err, ErrAuth)
}

func TestVault_RenovacoesConcorrentesFazemUmUnicoRefresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v, client, connRepo := newTestVault(t, ctrl)

	encryptedRefresh, err := v.Encrypt("refresh-token")
	assert.NoError(t, err)

	expired := time.Now().Add(-time.Minute)

	var mu sync.Mutex
	conn := domain.Connection{
		ID:                    "conn-1",
		EncryptedRefreshToken: encryptedRefresh,
		TokenExpiresAt:        &expired,
	}

	// Após o primeiro refresh o token persistido passa a valer: as demais
	// goroutines releem a conexão sob o lock e reaproveitam o resultado
	connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		DoAndReturn(func(_ context.Context, _ string) (*domain.Connection, error) {
			mu.Lock()
			defer mu.Unlock()
			snapshot := conn
			return &snapshot, nil
		}).
		AnyTimes()

	client.EXPECT().
		RefreshAccessToken(gomock.Any(), "refresh-token").
		Return(&adsdomain.TokenResponse{
			AccessToken: "access-token-novo",
			ExpiresIn:   3600,
		}, nil).
		Times(1)

	connRepo.EXPECT().
		UpdateTokens(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, updated *domain.Connection) error {
			mu.Lock()
			defer mu.Unlock()
			conn = *updated
			return nil
		}).
		Times(1)

	done := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			token, err := v.EnsureFresh(context.Background(), "conn-1")
			if err == nil {
				assert.Equal(t, "access-token-novo", token)
			}
			done <- err
		}()
	}

	for i := 0; i < 5; i++ {
		assert.NoError(t, <-done)
	}
}
