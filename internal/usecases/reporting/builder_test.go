package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/buffapp/amazon-ads-api/internal/domain"
)

func validRawConfig() RawReportConfig {
	return RawReportConfig{
		AdProduct: domain.AdProductSponsoredProducts,
		GroupBy:   []string{"campaign"},
		Columns:   []string{"date", "impressions", "clicks", "cost", "campaignId"},
		TimeUnit:  domain.TimeUnitDaily,
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	}
}

func TestBuildReportConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(raw *RawReportConfig)
		valid  bool
	}{
		{
			name:   "Configuração válida com DAILY e coluna date",
			modify: func(raw *RawReportConfig) {},
			valid:  true,
		},
		{
			name: "Produto de anúncio desconhecido deve ser rejeitado",
			modify: func(raw *RawReportConfig) {
				raw.AdProduct = "SPONSORED_TELEVISION"
			},
		},
		{
			name: "timeUnit desconhecido deve ser rejeitado",
			modify: func(raw *RawReportConfig) {
				raw.TimeUnit = "HOURLY"
			},
		},
		{
			name: "groupBy vazio deve ser rejeitado",
			modify: func(raw *RawReportConfig) {
				raw.GroupBy = nil
			},
		},
		{
			name: "columns vazio deve ser rejeitado",
			modify: func(raw *RawReportConfig) {
				raw.Columns = nil
			},
		},
		{
			name: "DAILY sem a coluna date deve ser rejeitado",
			modify: func(raw *RawReportConfig) {
				raw.Columns = []string{"impressions", "clicks"}
			},
		},
		{
			name: "SUMMARY sem startDate e endDate deve ser rejeitado",
			modify: func(raw *RawReportConfig) {
				raw.TimeUnit = domain.TimeUnitSummary
				raw.Columns = []string{"impressions", "clicks"}
			},
		},
		{
			name: "SUMMARY com startDate e endDate é válido",
			modify: func(raw *RawReportConfig) {
				raw.TimeUnit = domain.TimeUnitSummary
				raw.Columns = []string{"startDate", "endDate", "impressions"}
			},
			valid: true,
		},
		{
			name: "Coluna de adGroup sem o nível adGroup em groupBy deve ser rejeitada",
			modify: func(raw *RawReportConfig) {
				raw.Columns = []string{"date", "adGroupId", "impressions"}
			},
		},
		{
			name: "Coluna de adGroup com o nível adGroup em groupBy é válida",
			modify: func(raw *RawReportConfig) {
				raw.GroupBy = []string{"campaign", "adGroup"}
				raw.Columns = []string{"date", "adGroupId", "campaignId", "impressions"}
			},
			valid: true,
		},
		{
			name: "Data inicial em formato inválido deve ser rejeitada",
			modify: func(raw *RawReportConfig) {
				raw.StartDate = "01/01/2024"
			},
		},
		{
			name: "Data final anterior à inicial deve ser rejeitada",
			modify: func(raw *RawReportConfig) {
				raw.StartDate = "2024-02-01"
				raw.EndDate = "2024-01-01"
			},
		},
		{
			name: "Intervalo de exatamente 90 dias é válido",
			modify: func(raw *RawReportConfig) {
				raw.StartDate = "2024-01-01"
				raw.EndDate = "2024-03-31"
			},
			valid: true,
		},
		{
			name: "Intervalo maior que 90 dias deve ser rejeitado",
			modify: func(raw *RawReportConfig) {
				raw.StartDate = "2024-01-01"
				raw.EndDate = "2024-04-01"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRawConfig()
			tt.modify(&raw)

			_, err := BuildReportConfig(raw)

			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestBuildReportConfig_ValidationErrorCarriesDateRange(t *testing.T) {
	raw := validRawConfig()
	raw.StartDate = "2024-01-01"
	raw.EndDate = "2024-12-31"

	_, err := BuildReportConfig(raw)

	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "2024-01-01")
	assert.Contains(t, err.Error(), "2024-12-31")
}

func TestReportConfig_CanonicalHash(t *testing.T) {
	raw := validRawConfig()

	cfg, err := BuildReportConfig(raw)
	assert.NoError(t, err)

	// Mesma configuração com colunas e agrupamentos em outra ordem e com
	// duplicatas deve produzir exatamente o mesmo hash
	shuffled := raw
	shuffled.Columns = []string{"campaignId", "cost", "clicks", "date", "impressions", "impressions"}
	shuffled.GroupBy = []string{"campaign", "campaign"}

	cfgShuffled, err := BuildReportConfig(shuffled)
	assert.NoError(t, err)

	assert.Equal(t, cfg.Canonical(), cfgShuffled.Canonical())
	assert.Equal(t, cfg.Hash(), cfgShuffled.Hash())

	// Qualquer diferença real de configuração muda o hash
	other := raw
	other.EndDate = "2024-02-01"

	cfgOther, err := BuildReportConfig(other)
	assert.NoError(t, err)

	assert.NotEqual(t, cfg.Hash(), cfgOther.Hash())
}

func TestReportConfig_ToRequest(t *testing.T) {
	cfg, err := BuildReportConfig(validRawConfig())
	assert.NoError(t, err)

	request := cfg.ToRequest()

	assert.Equal(t, "2024-01-01", request.StartDate)
	assert.Equal(t, "2024-01-31", request.EndDate)
	assert.Equal(t, "SPONSORED_PRODUCTS", request.Configuration.AdProduct)
	assert.Equal(t, "spCampaigns", request.Configuration.ReportTypeID)
	assert.Equal(t, "DAILY", request.Configuration.TimeUnit)
	assert.Equal(t, "GZIP_JSON", request.Configuration.Format)
}
