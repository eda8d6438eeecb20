package domain

import "time"

// ReportStatus representa o estado de um job de relatório na Amazon Ads API
type ReportStatus string

const (
	ReportStatusCreated    ReportStatus = "CREATED"
	ReportStatusSubmitted  ReportStatus = "SUBMITTED"
	ReportStatusPending    ReportStatus = "PENDING"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusCompleted  ReportStatus = "COMPLETED"
	ReportStatusFailed     ReportStatus = "FAILED"
	ReportStatusTimedOut   ReportStatus = "TIMED_OUT"
)

// statusRank define a ordem de progresso entre os estados. Transições nunca
// retrocedem: um upsert com rank menor que o persistido é ignorado.
var statusRank = map[ReportStatus]int{
	ReportStatusCreated:    0,
	ReportStatusSubmitted:  1,
	ReportStatusPending:    2,
	ReportStatusProcessing: 3,
	ReportStatusCompleted:  4,
	ReportStatusFailed:     4,
	ReportStatusTimedOut:   4,
}

// Rank retorna a posição do estado na ordem de progresso
func (s ReportStatus) Rank() int {
	return statusRank[s]
}

// IsTerminal indica se o job não sofre mais transições
func (s ReportStatus) IsTerminal() bool {
	switch s {
	case ReportStatusCompleted, ReportStatusFailed, ReportStatusTimedOut:
		return true
	}
	return false
}

// AdProduct é o tipo de produto de anúncio da Amazon Ads
type AdProduct string

const (
	AdProductSponsoredProducts AdProduct = "SPONSORED_PRODUCTS"
	AdProductSponsoredBrands   AdProduct = "SPONSORED_BRANDS"
	AdProductSponsoredDisplay  AdProduct = "SPONSORED_DISPLAY"
)

// ValidAdProduct verifica se o produto de anúncio é suportado
func ValidAdProduct(p AdProduct) bool {
	switch p {
	case AdProductSponsoredProducts, AdProductSponsoredBrands, AdProductSponsoredDisplay:
		return true
	}
	return false
}

// TimeUnit é a granularidade temporal do relatório
type TimeUnit string

const (
	TimeUnitDaily   TimeUnit = "DAILY"
	TimeUnitSummary TimeUnit = "SUMMARY"
)

// ReportFormat é o formato de saída do relatório
type ReportFormat string

const (
	ReportFormatGzipJSON ReportFormat = "GZIP_JSON"
)

// ReportJob é a entidade central do orquestrador: acompanha um relatório
// assíncrono da submissão até um estado terminal
type ReportJob struct {
	ReportID         string       `json:"report_id"`
	ConnectionID     string       `json:"connection_id"`
	ConfigHash       string       `json:"config_hash"`
	AdProduct        AdProduct    `json:"ad_product"`
	TimeUnit         TimeUnit     `json:"time_unit"`
	Status           ReportStatus `json:"status"`
	FailureReason    *string      `json:"failure_reason,omitempty"`
	URL              *string      `json:"url,omitempty"`
	URLExpiresAt     *time.Time   `json:"url_expires_at,omitempty"`
	GeneratedAt      *time.Time   `json:"generated_at,omitempty"`
	ArtifactLocation *string      `json:"artifact_location,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// DownloadableAt informa se o artefato pode ser baixado no instante dado:
// exige estado COMPLETED e URL dentro da janela de validade
func (j *ReportJob) DownloadableAt(now time.Time) bool {
	if j.Status != ReportStatusCompleted || j.URL == nil {
		return false
	}
	return j.URLExpiresAt != nil && now.Before(*j.URLExpiresAt)
}
