package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"difal-service/internal/config"
	"difal-service/internal/core/benefits"
	"difal-service/internal/core/difal"
	"difal-service/internal/core/rates"
	"difal-service/internal/domain"
	"difal-service/internal/export"
	"difal-service/internal/logger"
)

type calcOpts struct {
	*rootOpts
	originUF         string
	destinationUF    string
	share            float64
	methodology      string
	fcp              float64
	precision        int
	useParticipantUF bool
	benefitsFile     string
	format           string
	output           string
}

func calc(o *rootOpts) *calcOpts {
	return &calcOpts{rootOpts: o}
}

func (c *calcOpts) cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc <sped-file>",
		Short: "Calcula o DIFAL de um arquivo SPED e imprime os totais ou gera o relatório",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runE,
	}

	flags := cmd.Flags()
	flags.StringVar(&c.originUF, "origin", "", "UF de origem (sigla ou nome do estado)")
	flags.StringVar(&c.destinationUF, "destination", "", "UF de destino; padrão é a UF do registro 0000")
	flags.Float64Var(&c.share, "share", 100, "Percentual do FCP (base dupla) devido à UF de destino")
	flags.StringVar(&c.methodology, "methodology", "", "Metodologia forçada: single ou double; vazio usa a da UF de destino")
	flags.Float64Var(&c.fcp, "fcp", -1, "Alíquota de FCP informada manualmente; negativa usa a tabela")
	flags.IntVar(&c.precision, "precision", 2, "Casas decimais dos valores calculados")
	flags.BoolVar(&c.useParticipantUF, "participant-uf", true, "Usa a UF do fornecedor (registro 0150) como origem quando conhecida")
	flags.StringVar(&c.benefitsFile, "benefits", "", "Planilha de benefícios por item (xlsx, xls ou csv)")
	flags.StringVar(&c.format, "format", "totals", "Saída: totals, json, xlsx ou csv")
	flags.StringVarP(&c.output, "output", "o", "", "Arquivo de saída; padrão é a saída padrão")

	return cmd
}

func (c *calcOpts) runE(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if strings.EqualFold(cfg.Log.Output, "stdout") {
		cfg.Log.Output = "stderr"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() // nolint:errcheck

	runCfg := c.engineConfig(cmd, cfg.Difal)
	cfops, err := cfg.Difal.CFOPTable()
	if err != nil {
		return err
	}

	opts := []difal.Option{}
	switch {
	case c.benefitsFile != "":
		opts = append(opts, difal.WithBenefitStore(benefits.NewFileStore(c.benefitsFile)))
	case cfg.Benefits.Source == config.BenefitsFile:
		opts = append(opts, difal.WithBenefitStore(benefits.NewFileStore(cfg.Benefits.File)))
	}
	svc := difal.NewService(log, rates.DefaultJurisdictions(), cfops, opts...)

	input, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer input.Close() // nolint:errcheck

	report, err := svc.Analyze(cmd.Context(), input, runCfg)
	if err != nil {
		log.Error("Falha no cálculo de DIFAL", zap.Error(err))
		return err
	}

	out, err := openOutput(cmd, c.output)
	if err != nil {
		return err
	}
	defer out.Close() // nolint:errcheck

	return c.write(out, report)
}

// engineConfig starts from the configured defaults; flags override them only
// when given on the command line.
func (c *calcOpts) engineConfig(cmd *cobra.Command, defaults config.DifalConfig) difal.Config {
	cfg := defaults.EngineConfig()
	flags := cmd.Flags()
	if flags.Changed("origin") {
		cfg.OriginUF = c.originUF
	}
	if flags.Changed("destination") {
		cfg.DestinationUF = c.destinationUF
	}
	if flags.Changed("share") {
		share := c.share
		cfg.DestinationShare = &share
	}
	if flags.Changed("methodology") {
		cfg.Methodology = domain.Methodology(strings.ToUpper(c.methodology))
	}
	if flags.Changed("fcp") {
		cfg.FCPOverride = nil
		if c.fcp >= 0 {
			fcp := c.fcp
			cfg.FCPOverride = &fcp
		}
	}
	if flags.Changed("precision") {
		cfg.Precision = c.precision
	}
	if flags.Changed("participant-uf") {
		cfg.UseParticipantUF = c.useParticipantUF
	}
	return cfg
}

func (c *calcOpts) write(w io.Writer, report *domain.Report) error {
	switch strings.ToLower(c.format) {
	case "totals", "":
		return writeTotals(w, report)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		format, err := export.ParseFormat(c.format)
		if err != nil {
			return err
		}
		return export.Write(w, report, format)
	}
}

func writeTotals(w io.Writer, report *domain.Report) error {
	s, t, d := report.Settings, report.Totals, report.Diagnostics
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Rota\t%s → %s (%s)\n", s.OriginUF, s.DestinationUF, s.Methodology)
	fmt.Fprintf(tw, "Itens calculados\t%d\n", t.Items)
	fmt.Fprintf(tw, "Itens com DIFAL\t%d (%.2f%%)\n", t.ItemsWithDifal, t.PercentWithDifal)
	fmt.Fprintf(tw, "Itens com erro\t%d\n", t.ErroredItems)
	fmt.Fprintf(tw, "Base total\t%.2f\n", t.Base)
	fmt.Fprintf(tw, "DIFAL\t%.2f\n", t.Difal)
	fmt.Fprintf(tw, "FCP\t%.2f\n", t.FCP)
	fmt.Fprintf(tw, "Total a recolher\t%.2f\n", t.TotalToCollect)
	fmt.Fprintf(tw, "Linhas lidas/ignoradas\t%d/%d\n", d.LinesRead, d.LinesIgnored)
	warnings := len(d.CatalogWarnings) + len(d.RateWarnings) + len(d.InvoiceAlerts) + len(d.BenefitWarnings)
	fmt.Fprintf(tw, "Avisos\t%d\n", warnings)
	return tw.Flush()
}
