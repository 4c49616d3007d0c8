// package difal/service.go
package difal

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"difal-service/internal/core/benefits"
	"difal-service/internal/core/rates"
	"difal-service/internal/core/sped"
	"difal-service/internal/domain"
	"difal-service/internal/metrics"
)

// Service defines the interface for SPED DIFAL analysis.
type Service interface {
	Analyze(ctx context.Context, spedFile io.Reader, cfg Config) (*domain.Report, error)
}

type service struct {
	logger        *zap.Logger
	jurisdictions *rates.Jurisdictions
	cfops         rates.CFOPTable
	benefits      benefits.Store
	metrics       *metrics.Metrics
}

// Option customizes the service.
type Option func(*service)

// WithBenefitStore sets the store consulted when a run has no benefit configuration of its own.
func WithBenefitStore(store benefits.Store) Option {
	return func(s *service) { s.benefits = store }
}

// WithMetrics records every run on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

// NewService creates a new DIFAL service. The reference tables are read-only
// and shared by every run.
func NewService(logger *zap.Logger, jurisdictions *rates.Jurisdictions, cfops rates.CFOPTable, opts ...Option) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if jurisdictions == nil {
		jurisdictions = rates.DefaultJurisdictions()
	}
	if cfops.Len() == 0 {
		cfops = rates.DefaultCFOPTable()
	}
	s := &service{logger: logger, jurisdictions: jurisdictions, cfops: cfops}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze reads one SPED file and computes DIFAL for every relevant item. Every
// run builds its own registry, catalog, index and engine.
func (s *service) Analyze(ctx context.Context, spedFile io.Reader, cfg Config) (*domain.Report, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID))

	text, err := sped.Read(spedFile)
	if err != nil {
		s.metrics.ObserveFailure("decode")
		return nil, fmt.Errorf("falha ao processar arquivo SPED: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reg := sped.Parse(text)
	if cfg.DestinationUF == "" && reg.Company != nil {
		cfg.DestinationUF = reg.Company.UF
	}

	engineCfg := cfg
	report := &domain.Report{RunID: runID, Company: reg.Company}
	diag := &report.Diagnostics
	diag.LinesRead = reg.LinesRead
	diag.LinesIgnored = reg.LinesIgnored
	diag.FormatErrors = reg.FormatErrors

	if engineCfg.Benefits == nil && s.benefits != nil {
		cnpj := ""
		if reg.Company != nil {
			cnpj = reg.Company.CNPJ
		}
		loaded, warnings, err := s.benefits.Load(ctx, cnpj)
		if err != nil {
			s.metrics.ObserveFailure("benefits")
			return nil, fmt.Errorf("falha ao carregar benefícios: %w", err)
		}
		engineCfg.Benefits = loaded
		diag.BenefitWarnings = append(diag.BenefitWarnings, warnings...)
	}

	engine, err := NewEngine(engineCfg, s.jurisdictions)
	if err != nil {
		log.Warn("Configuração inválida", zap.Error(err))
		s.metrics.ObserveFailure("configuration")
		return nil, err
	}
	report.Settings = engine.Settings()

	catalog, catalogWarnings := sped.BuildCatalog(reg.Type(domain.RecordCatalog))
	participants := sped.IndexParticipants(reg.Type(domain.RecordParticipant))
	invoices, invoiceWarnings := sped.IndexInvoices(reg.Type(domain.RecordInvoice), participants)
	diag.CatalogWarnings = append(catalogWarnings, invoiceWarnings...)
	diag.BenefitWarnings = append(diag.BenefitWarnings, benefits.Reconcile(engineCfg.Benefits, catalog)...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, stats := sped.ExtractItems(reg, catalog, invoices, s.cfops)
	diag.DiscardedByCFOP = stats.DiscardedByCFOP
	diag.CancelledSkipped = stats.CancelledSkipped
	diag.OrphanItems = stats.OrphanItems
	diag.CatalogNotFound = stats.CatalogNotFound
	diag.FormatErrors = append(diag.FormatErrors, stats.FormatErrors...)
	diag.RateWarnings = stats.RateWarnings
	diag.InvoiceAlerts = stats.InvoiceAlerts

	for _, w := range stats.RateWarnings {
		log.Warn("CST/CSOSN sem mapeamento", zap.String("detail", w))
	}

	report.Results, report.Totals = engine.Calculate(items)

	for _, r := range report.Results {
		if r.Error != "" {
			log.Warn("Erro no cálculo do item",
				zap.String("item", r.Item.ItemCode),
				zap.Int("line", r.Item.Line),
				zap.String("error", r.Error),
			)
		}
	}

	elapsed := time.Since(started)
	s.metrics.ObserveRun(metrics.RunSummary{
		Duration:       elapsed,
		LinesIgnored:   reg.LinesIgnored,
		Items:          report.Totals.Items,
		ErroredItems:   report.Totals.ErroredItems,
		TotalToCollect: report.Totals.TotalToCollect,
	})
	log.Info("Cálculo de DIFAL concluído",
		zap.Int("lines_read", reg.LinesRead),
		zap.Int("lines_ignored", reg.LinesIgnored),
		zap.Int("items", report.Totals.Items),
		zap.Int("errored_items", report.Totals.ErroredItems),
		zap.String("destination_uf", report.Settings.DestinationUF),
		zap.String("methodology", string(report.Settings.Methodology)),
		zap.Float64("total_to_collect", report.Totals.TotalToCollect),
		zap.Duration("elapsed", elapsed),
	)

	return report, nil
}
