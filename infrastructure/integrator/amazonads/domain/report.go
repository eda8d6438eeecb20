package domain

import "time"

// ReportFilter é um filtro opcional aplicado ao relatório
type ReportFilter struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// ReportConfiguration é o bloco de configuração enviado no corpo da criação
// de relatório da Amazon Ads API v3
type ReportConfiguration struct {
	AdProduct    string         `json:"adProduct"`
	GroupBy      []string       `json:"groupBy"`
	Columns      []string       `json:"columns"`
	ReportTypeID string         `json:"reportTypeId"`
	TimeUnit     string         `json:"timeUnit"`
	Format       string         `json:"format"`
	Filters      []ReportFilter `json:"filters,omitempty"`
}

// ReportRequest é o payload de criação de relatório
type ReportRequest struct {
	Name          string              `json:"name,omitempty"`
	StartDate     string              `json:"startDate"`
	EndDate       string              `json:"endDate"`
	Configuration ReportConfiguration `json:"configuration"`
}

// ReportResponse é a resposta das operações de criação e consulta de status
type ReportResponse struct {
	ReportID      string     `json:"reportId"`
	Status        string     `json:"status"`
	FailureReason *string    `json:"failureReason,omitempty"`
	URL           *string    `json:"url,omitempty"`
	URLExpiresAt  *time.Time `json:"urlExpiresAt,omitempty"`
	GeneratedAt   *time.Time `json:"generatedAt,omitempty"`
	FileSize      *int64     `json:"fileSize,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// TokenResponse é a resposta do endpoint OAuth da Amazon ao trocar um código
// de autorização ou renovar um access token
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AccountInfo traz os dados da conta dona de um profile
type AccountInfo struct {
	MarketplaceStringID string `json:"marketplaceStringId"`
	Name                string `json:"name"`
	Type                string `json:"type"`
}

// Profile é um perfil de anunciante retornado por /v2/profiles
type Profile struct {
	ProfileID    int64       `json:"profileId"`
	CountryCode  string      `json:"countryCode"`
	CurrencyCode string      `json:"currencyCode"`
	Timezone     string      `json:"timezone"`
	AccountInfo  AccountInfo `json:"accountInfo"`
}
