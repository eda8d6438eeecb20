package domain

import "time"

// Connection representa o vínculo de uma conta de anúncios Amazon Ads com um
// usuário. Os tokens OAuth são armazenados sempre criptografados; apenas o
// vault sabe abrir os envelopes
type Connection struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	ProfileID             string     `json:"profile_id"`
	CountryCode           string     `json:"country_code"`
	CurrencyCode          string     `json:"currency_code"`
	MarketplaceID         string     `json:"marketplace_id"`
	AccountName           string     `json:"account_name"`
	AccountType           string     `json:"account_type"`
	EncryptedRefreshToken string     `json:"-"`
	EncryptedAccessToken  string     `json:"-"`
	TokenExpiresAt        *time.Time `json:"token_expires_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TokenExpired informa se o access token precisa ser renovado no instante
// dado. Um token sem expiração conhecida é tratado como expirado
func (c *Connection) TokenExpired(now time.Time) bool {
	if c.EncryptedAccessToken == "" || c.TokenExpiresAt == nil {
		return true
	}
	return !now.Before(*c.TokenExpiresAt)
}
