// package domain/models.go
package domain

import "time"

// Record type codes of the EFD ICMS/IPI layout used by the DIFAL calculation.
const (
	RecordHeader      = "0000"
	RecordParticipant = "0150"
	RecordCatalog     = "0200"
	RecordInvoice     = "C100"
	RecordLineItem    = "C170"
)

// Sentinels used when the catalog has no usable data for an item.
const (
	NCMNotFound              = "NOT FOUND"
	DescriptionNotCatalogued = "NOT CATALOGUED"
)

// FiscalRecord is one validated line of the SPED file. Fields[0] is the record type.
type FiscalRecord struct {
	Type   string
	Fields []string
	Line   int
}

// Field returns the field at position i, or "" when the record is shorter.
func (r FiscalRecord) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// Registry holds the parsed records of one file, both in file order and grouped by type.
type Registry struct {
	Records      []FiscalRecord
	ByType       map[string][]FiscalRecord
	Company      *CompanyHeader
	LinesRead    int
	LinesIgnored int
	FormatErrors []RecordFormatError
}

// Type returns the records of a given type in file order.
func (r *Registry) Type(recordType string) []FiscalRecord {
	if r == nil || r.ByType == nil {
		return nil
	}
	return r.ByType[recordType]
}

// CompanyHeader is built from the first 0000 record.
type CompanyHeader struct {
	LayoutVersion string    `json:"layout_version"`
	Purpose       string    `json:"purpose"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	LegalName     string    `json:"legal_name"`
	CNPJ          string    `json:"cnpj"`
	UF            string    `json:"uf"`
	StateReg      string    `json:"state_registration"`
}

// ProductCatalogEntry is one 0200 record.
type ProductCatalogEntry struct {
	ItemCode    string `json:"item_code"`
	Description string `json:"description"`
	Barcode     string `json:"barcode,omitempty"`
	Unit        string `json:"unit,omitempty"`
	ItemType    string `json:"item_type"`
	NCM         string `json:"ncm"`
}

// Participant is one 0150 record.
type Participant struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	CNPJ             string `json:"cnpj,omitempty"`
	StateReg         string `json:"state_registration,omitempty"`
	MunicipalityCode string `json:"municipality_code,omitempty"`
	UF               string `json:"uf,omitempty"`
}

// InvoiceKey identifies an invoice header. The participant code disambiguates
// documents from different suppliers sharing series and number.
type InvoiceKey struct {
	Participant string `json:"participant"`
	Series      string `json:"series"`
	Number      string `json:"number"`
}

// InvoiceHeader is one C100 record.
type InvoiceHeader struct {
	Key              InvoiceKey `json:"key"`
	Operation        string     `json:"operation"`
	Issuer           string     `json:"issuer"`
	Model            string     `json:"model"`
	Situation        string     `json:"situation"`
	AccessKey        string     `json:"access_key,omitempty"`
	DocumentDate     time.Time  `json:"document_date"`
	ParticipantUF    string     `json:"participant_uf,omitempty"`
	DocumentValue    float64    `json:"document_value"`
	MerchandiseValue float64    `json:"merchandise_value"`
	Freight          float64    `json:"freight"`
	Insurance        float64    `json:"insurance"`
	OtherExpenses    float64    `json:"other_expenses"`
	ICMSBase         float64    `json:"icms_base"`
	ICMSValue        float64    `json:"icms_value"`
	IPIValue         float64    `json:"ipi_value"`
	Line             int        `json:"line"`
}

// Cancelled reports whether the document situation denotes a cancelled or denied document.
func (h InvoiceHeader) Cancelled() bool {
	switch h.Situation {
	case "02", "03", "04", "05":
		return true
	}
	return false
}

// CatalogStatus records whether an item was found in the product catalog.
type CatalogStatus string

const (
	CatalogFound    CatalogStatus = "FOUND"
	CatalogNotFound CatalogStatus = "NOT_FOUND"
)

// TaxRegime distinguishes normal-regime CST from simplified-regime CSOSN codes.
type TaxRegime string

const (
	RegimeNormal     TaxRegime = "CST"
	RegimeSimplified TaxRegime = "CSOSN"
	RegimeUnknown    TaxRegime = "UNKNOWN"
)

// TaxSituation is the classification of an item's CST/CSOSN code.
type TaxSituation struct {
	Code      string    `json:"code"`
	Regime    TaxRegime `json:"regime"`
	Origin    string    `json:"origin,omitempty"`
	Situation string    `json:"situation"`
	Mapped    bool      `json:"mapped"`
}

// LineItem is one tax-relevant C170 record linked to its invoice.
type LineItem struct {
	Invoice        InvoiceKey    `json:"invoice"`
	Line           int           `json:"line"`
	ItemNumber     string        `json:"item_number"`
	ItemCode       string        `json:"item_code"`
	Description    string        `json:"description"`
	NCM            string        `json:"ncm"`
	ItemType       string        `json:"item_type"`
	CatalogStatus  CatalogStatus `json:"catalog_status"`
	CFOP           string        `json:"cfop"`
	CFOPCategory   CFOPCategory  `json:"cfop_category"`
	Quantity       float64       `json:"quantity"`
	Unit           string        `json:"unit"`
	GrossValue     float64       `json:"gross_value"`
	Discount       float64       `json:"discount"`
	ICMSBase       float64       `json:"icms_base"`
	ICMSRate       float64       `json:"icms_rate"`
	ICMSValue      float64       `json:"icms_value"`
	IPIValue       float64       `json:"ipi_value"`
	TaxCode        string        `json:"tax_code"`
	TaxSituation   TaxSituation  `json:"tax_situation"`
	ParticipantUF  string        `json:"participant_uf,omitempty"`
	ApportionRatio float64       `json:"apportion_ratio"`
	Freight        float64       `json:"freight"`
	Insurance      float64       `json:"insurance"`
	OtherExpenses  float64       `json:"other_expenses"`
	DifalBase      float64       `json:"difal_base"`
}

// CFOPCategory groups the DIFAL-relevant CFOPs.
type CFOPCategory string

const (
	CFOPUseConsumption CFOPCategory = "USO_CONSUMO"
	CFOPFixedAsset     CFOPCategory = "ATIVO_IMOBILIZADO"
)

// Methodology is the DIFAL calculation method of a destination UF.
type Methodology string

const (
	SingleBase Methodology = "BASE_UNICA"
	DoubleBase Methodology = "BASE_DUPLA"
)

// CalculationResult is the DIFAL outcome of one line item.
type CalculationResult struct {
	Item            LineItem     `json:"item"`
	OriginUF        string       `json:"origin_uf"`
	DestinationUF   string       `json:"destination_uf"`
	Methodology     Methodology  `json:"methodology"`
	Base            float64      `json:"base"`
	OriginRate      float64      `json:"origin_rate"`
	DestinationRate float64      `json:"destination_rate"`
	FCPRate         float64      `json:"fcp_rate"`
	Difal           float64      `json:"difal"`
	FCP             float64      `json:"fcp"`
	Total           float64      `json:"total"`
	Benefit         *BenefitInfo `json:"benefit,omitempty"`
	Trail           []string     `json:"trail"`
	Error           string       `json:"error,omitempty"`
}

// Totals aggregates the results of one run.
type Totals struct {
	Items            int     `json:"items"`
	ItemsWithDifal   int     `json:"items_with_difal"`
	ErroredItems     int     `json:"errored_items"`
	PercentWithDifal float64 `json:"percent_with_difal"`
	Base             float64 `json:"base"`
	Difal            float64 `json:"difal"`
	FCP              float64 `json:"fcp"`
	TotalToCollect   float64 `json:"total_to_collect"`
}

// Diagnostics collects everything recovered locally during a run.
type Diagnostics struct {
	LinesRead        int                 `json:"lines_read"`
	LinesIgnored     int                 `json:"lines_ignored"`
	FormatErrors     []RecordFormatError `json:"format_errors,omitempty"`
	CatalogWarnings  []string            `json:"catalog_warnings,omitempty"`
	DiscardedByCFOP  int                 `json:"discarded_by_cfop"`
	CancelledSkipped int                 `json:"cancelled_skipped"`
	OrphanItems      int                 `json:"orphan_items"`
	CatalogNotFound  int                 `json:"catalog_not_found"`
	RateWarnings     []string            `json:"rate_warnings,omitempty"`
	InvoiceAlerts    []string            `json:"invoice_alerts,omitempty"`
	BenefitWarnings  []string            `json:"benefit_warnings,omitempty"`
}

// Report is everything a single analysis run returns to the caller.
type Report struct {
	RunID       string              `json:"run_id"`
	Company     *CompanyHeader      `json:"company,omitempty"`
	Settings    Settings            `json:"settings"`
	Results     []CalculationResult `json:"results"`
	Totals      Totals              `json:"totals"`
	Diagnostics Diagnostics         `json:"diagnostics"`
}

// Settings echoes the configuration a run was computed with.
type Settings struct {
	OriginUF         string      `json:"origin_uf"`
	DestinationUF    string      `json:"destination_uf"`
	DestinationShare float64     `json:"destination_share"`
	Methodology      Methodology `json:"methodology"`
	ForcedMethod     bool        `json:"forced_methodology"`
	FCPOverride      *float64    `json:"fcp_override,omitempty"`
	Precision        int         `json:"precision"`
}
