package reporting

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	adsdomain "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/domain"
	"github.com/buffapp/amazon-ads-api/internal/domain"
)

const maxDateRangeDays = 90

// RawReportConfig é a configuração crua recebida do chamador, ainda não
// validada nem normalizada
type RawReportConfig struct {
	AdProduct domain.AdProduct      `json:"ad_product"`
	GroupBy   []string              `json:"group_by"`
	Columns   []string              `json:"columns"`
	TimeUnit  domain.TimeUnit       `json:"time_unit"`
	StartDate string                `json:"start_date"`
	EndDate   string                `json:"end_date"`
	Filters   []ReportConfigFilter  `json:"filters,omitempty"`
	Format    domain.ReportFormat   `json:"format,omitempty"`
}

type ReportConfigFilter struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// ReportConfig é a configuração validada e normalizada de um relatório.
// É construída uma única vez pelo builder e tratada como imutável: o
// orquestrador só a lê
type ReportConfig struct {
	AdProduct domain.AdProduct
	GroupBy   []string
	Columns   []string
	TimeUnit  domain.TimeUnit
	StartDate string
	EndDate   string
	Filters   []ReportConfigFilter
	Format    domain.ReportFormat
}

// reportTypeByProduct mapeia o produto de anúncio para o reportTypeId da
// Amazon Ads API v3
var reportTypeByProduct = map[domain.AdProduct]string{
	domain.AdProductSponsoredProducts: "spCampaigns",
	domain.AdProductSponsoredBrands:   "sbCampaigns",
	domain.AdProductSponsoredDisplay:  "sdCampaigns",
}

// columnGroupPrefixes relaciona prefixos de coluna ao nível de agrupamento
// que eles exigem em groupBy
var columnGroupPrefixes = map[string]string{
	"campaign": "campaign",
	"adGroup":  "adGroup",
	"targeting": "targeting",
	"keyword":  "targeting",
}

// BuildReportConfig valida e normaliza a configuração crua. Toda rejeição
// acontece aqui, antes de qualquer chamada de rede
func BuildReportConfig(raw RawReportConfig) (ReportConfig, error) {
	var cfg ReportConfig

	if !domain.ValidAdProduct(raw.AdProduct) {
		return cfg, NewValidationError(fmt.Sprintf("produto de anúncio não suportado: %q", raw.AdProduct))
	}

	if raw.TimeUnit != domain.TimeUnitDaily && raw.TimeUnit != domain.TimeUnitSummary {
		return cfg, NewValidationError(fmt.Sprintf("timeUnit não suportado: %q", raw.TimeUnit))
	}

	if len(raw.GroupBy) == 0 {
		return cfg, NewValidationError("groupBy não pode ser vazio")
	}

	if len(raw.Columns) == 0 {
		return cfg, NewValidationError("columns não pode ser vazio")
	}

	columns := normalize(raw.Columns)
	groupBy := normalize(raw.GroupBy)

	// DAILY exige a coluna date; SUMMARY exige startDate e endDate
	switch raw.TimeUnit {
	case domain.TimeUnitDaily:
		if !contains(columns, "date") {
			return cfg, NewValidationError("timeUnit DAILY exige a coluna date")
		}
	case domain.TimeUnitSummary:
		if !contains(columns, "startDate") || !contains(columns, "endDate") {
			return cfg, NewValidationError("timeUnit SUMMARY exige as colunas startDate e endDate")
		}
	}

	// Colunas que referenciam um nível de agrupamento ausente são rejeitadas
	for _, column := range columns {
		for prefix, level := range columnGroupPrefixes {
			if strings.HasPrefix(column, prefix) && !contains(groupBy, level) {
				return cfg, NewValidationError(
					fmt.Sprintf("coluna %q exige o nível %q em groupBy", column, level))
			}
		}
	}

	if err := validateDateRange(raw.StartDate, raw.EndDate); err != nil {
		return cfg, err
	}

	format := raw.Format
	if format == "" {
		format = domain.ReportFormatGzipJSON
	}

	cfg = ReportConfig{
		AdProduct: raw.AdProduct,
		GroupBy:   groupBy,
		Columns:   columns,
		TimeUnit:  raw.TimeUnit,
		StartDate: raw.StartDate,
		EndDate:   raw.EndDate,
		Filters:   normalizeFilters(raw.Filters),
		Format:    format,
	}

	return cfg, nil
}

func validateDateRange(startDate, endDate string) error {
	start, err := time.Parse(time.DateOnly, startDate)
	if err != nil {
		return NewValidationError(fmt.Sprintf("data inicial inválida: %q", startDate))
	}

	end, err := time.Parse(time.DateOnly, endDate)
	if err != nil {
		return NewValidationError(fmt.Sprintf("data final inválida: %q", endDate))
	}

	if end.Before(start) {
		return &ValidationError{
			Details:   "data final anterior à data inicial",
			StartDate: startDate,
			EndDate:   endDate,
		}
	}

	if end.Sub(start) > maxDateRangeDays*24*time.Hour {
		return &ValidationError{
			Details:   fmt.Sprintf("intervalo de datas excede o máximo de %d dias", maxDateRangeDays),
			StartDate: startDate,
			EndDate:   endDate,
		}
	}

	return nil
}

// normalize remove duplicatas e ordena, garantindo representação estável
// para entradas logicamente idênticas
func normalize(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}

	sort.Strings(out)
	return out
}

func normalizeFilters(filters []ReportConfigFilter) []ReportConfigFilter {
	if len(filters) == 0 {
		return nil
	}

	out := make([]ReportConfigFilter, len(filters))
	for i, filter := range filters {
		out[i] = ReportConfigFilter{
			Field:  filter.Field,
			Values: normalize(filter.Values),
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Field < out[j].Field
	})

	return out
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

// ToRequest converte a configuração no payload de submissão da API
func (c ReportConfig) ToRequest() *adsdomain.ReportRequest {
	filters := make([]adsdomain.ReportFilter, 0, len(c.Filters))
	for _, filter := range c.Filters {
		filters = append(filters, adsdomain.ReportFilter{
			Field:  filter.Field,
			Values: filter.Values,
		})
	}

	return &adsdomain.ReportRequest{
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
		Configuration: adsdomain.ReportConfiguration{
			AdProduct:    string(c.AdProduct),
			GroupBy:      c.GroupBy,
			Columns:      c.Columns,
			ReportTypeID: reportTypeByProduct[c.AdProduct],
			TimeUnit:     string(c.TimeUnit),
			Format:       string(c.Format),
			Filters:      filters,
		},
	}
}

// Canonical é a serialização estável da configuração: entradas logicamente
// idênticas produzem exatamente os mesmos bytes. É sobre essa forma que a
// plataforma deduplica e que o orquestrador calcula o hash local
func (c ReportConfig) Canonical() []byte {
	payload, err := json.Marshal(c.ToRequest())
	if err != nil {
		// ToRequest só contém tipos serializáveis, Marshal não falha
		panic(err)
	}
	return payload
}

// Hash é o identificador de deduplicação local da configuração
func (c ReportConfig) Hash() string {
	sum := sha256.Sum256(c.Canonical())
	return hex.EncodeToString(sum[:])
}
