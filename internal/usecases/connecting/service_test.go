package connecting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	adsdomain "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/domain"
	clientmocks "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/mocks"
	repomocks "github.com/buffapp/amazon-ads-api/infrastructure/repository/mocks"
	"github.com/buffapp/amazon-ads-api/internal/config"
	"github.com/buffapp/amazon-ads-api/internal/domain"
)

// fakeVault marca os valores para o teste distinguir texto claro de envelope
type fakeVault struct{}

func (fakeVault) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func testConfig() *config.Config {
	return &config.Config{
		AmazonAds: config.AmazonAds{
			ClientID:    "client-id",
			RedirectURI: "http://localhost:8000/v1/connections/callback",
			AuthHost:    "https://www.amazon.com/ap/oa",
		},
	}
}

func TestAuthorizationURL(t *testing.T) {
	service := NewService(nil, fakeVault{}, nil, testConfig())

	authURL := service.AuthorizationURL("state-123")

	assert.Contains(t, authURL, "https://www.amazon.com/ap/oa?")
	assert.Contains(t, authURL, "client_id=client-id")
	assert.Contains(t, authURL, "response_type=code")
	assert.Contains(t, authURL, "state=state-123")
	assert.Contains(t, authURL, "scope=advertising%3A%3Acampaign_management")
}

func TestCompleteConnection_PersisteUmaConexaoPorProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := clientmocks.NewMockClient(ctrl)
	connRepo := repomocks.NewMockConnectionRepository(ctrl)

	client.EXPECT().
		ExchangeAuthorizationCode(gomock.Any(), "auth-code").
		Return(&adsdomain.TokenResponse{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresIn:    3600,
		}, nil)

	client.EXPECT().
		GetProfiles(gomock.Any(), "access-token").
		Return([]adsdomain.Profile{
			{
				ProfileID:    111,
				CountryCode:  "BR",
				CurrencyCode: "BRL",
				AccountInfo:  adsdomain.AccountInfo{MarketplaceStringID: "A2Q3Y263D00KWC", Name: "Loja A", Type: "seller"},
			},
			{
				ProfileID:    222,
				CountryCode:  "US",
				CurrencyCode: "USD",
				AccountInfo:  adsdomain.AccountInfo{MarketplaceStringID: "ATVPDKIKX0DER", Name: "Loja B", Type: "vendor"},
			},
		}, nil)

	var saved []*domain.Connection
	connRepo.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, conn *domain.Connection) error {
			saved = append(saved, conn)
			return nil
		}).
		Times(2)

	service := NewService(client, fakeVault{}, connRepo, testConfig())

	connections, err := service.CompleteConnection(context.Background(), "user-1", "auth-code")

	assert.NoError(t, err)
	assert.Len(t, connections, 2)
	assert.Len(t, saved, 2)

	assert.Equal(t, "111", saved[0].ProfileID)
	assert.Equal(t, "222", saved[1].ProfileID)

	// Tokens nunca são persistidos em texto claro
	for _, conn := range saved {
		assert.Equal(t, "enc:refresh-token", conn.EncryptedRefreshToken)
		assert.Equal(t, "enc:access-token", conn.EncryptedAccessToken)
		assert.Equal(t, "user-1", conn.UserID)
		assert.NotNil(t, conn.TokenExpiresAt)
	}
}

func TestCompleteConnection_SemProfilesFalha(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := clientmocks.NewMockClient(ctrl)
	connRepo := repomocks.NewMockConnectionRepository(ctrl)

	client.EXPECT().
		ExchangeAuthorizationCode(gomock.Any(), "auth-code").
		Return(&adsdomain.TokenResponse{AccessToken: "access-token"}, nil)

	client.EXPECT().
		GetProfiles(gomock.Any(), "access-token").
		Return([]adsdomain.Profile{}, nil)

	service := NewService(client, fakeVault{}, connRepo, testConfig())

	_, err := service.CompleteConnection(context.Background(), "user-1", "auth-code")

	assert.ErrorIs(t, err, ErrNoProfiles)
}

func TestDisconnect_SomenteODonoPodeRemover(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	connRepo := repomocks.NewMockConnectionRepository(ctrl)

	connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(&domain.Connection{ID: "conn-1", UserID: "user-2"}, nil)

	service := NewService(nil, fakeVault{}, connRepo, testConfig())

	err := service.Disconnect(context.Background(), "user-1", "conn-1")

	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestDisconnect_RemoveConexaoDoDono(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	connRepo := repomocks.NewMockConnectionRepository(ctrl)

	connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(&domain.Connection{ID: "conn-1", UserID: "user-1"}, nil)

	connRepo.EXPECT().
		Delete(gomock.Any(), "conn-1").
		Return(nil)

	service := NewService(nil, fakeVault{}, connRepo, testConfig())

	err := service.Disconnect(context.Background(), "user-1", "conn-1")

	assert.NoError(t, err)
}
