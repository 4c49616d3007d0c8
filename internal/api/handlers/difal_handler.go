// internal/api/handlers/difal_handler.go
package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"difal-service/internal/api/middleware"
	"difal-service/internal/api/responses"
	"difal-service/internal/core/benefits"
	"difal-service/internal/core/difal"
	"difal-service/internal/domain"
	"difal-service/internal/export"
)

// DifalHandler handles DIFAL calculation requests.
type DifalHandler struct {
	service  difal.Service
	defaults difal.Config
}

// NewDifalHandler creates a new DIFAL handler. defaults are the configured run
// settings; each request may override them through form fields.
func NewDifalHandler(service difal.Service, defaults difal.Config) *DifalHandler {
	return &DifalHandler{
		service:  service,
		defaults: defaults,
	}
}

// calculateForm holds the optional overrides of a calculation request.
type calculateForm struct {
	OriginUF         string   `form:"originUF"`
	DestinationUF    string   `form:"destinationUF"`
	DestinationShare *float64 `form:"destinationShare" binding:"omitempty,gte=0,lte=100"`
	Methodology      string   `form:"methodology"`
	FCPOverride      *float64 `form:"fcpOverride" binding:"omitempty,gte=0,lt=100"`
	Precision        *int     `form:"precision" binding:"omitempty,gte=0,lte=6"`
	UseParticipantUF *bool    `form:"useParticipantUF"`
}

func (f calculateForm) apply(cfg difal.Config) difal.Config {
	if f.OriginUF != "" {
		cfg.OriginUF = f.OriginUF
	}
	if f.DestinationUF != "" {
		cfg.DestinationUF = f.DestinationUF
	}
	if f.DestinationShare != nil {
		share := *f.DestinationShare
		cfg.DestinationShare = &share
	}
	if f.Methodology != "" {
		cfg.Methodology = domain.Methodology(f.Methodology)
	}
	if f.FCPOverride != nil {
		fcp := *f.FCPOverride
		cfg.FCPOverride = &fcp
	}
	if f.Precision != nil {
		cfg.Precision = *f.Precision
	}
	if f.UseParticipantUF != nil {
		cfg.UseParticipantUF = *f.UseParticipantUF
	}
	return cfg
}

// HandleCalculate handles DIFAL calculation requests and returns the full report.
func (h *DifalHandler) HandleCalculate(c *gin.Context) {
	report, ok := h.analyze(c)
	if !ok {
		return
	}
	responses.Success(c, report, "Cálculo de DIFAL concluído com sucesso")
}

// HandleExport runs the same calculation and returns the report as xlsx or csv.
func (h *DifalHandler) HandleExport(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Formato de exportação inválido", err.Error())
		return
	}

	report, ok := h.analyze(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, report, format); err != nil {
		middleware.RequestLogger(c).Error("Falha ao gerar relatório", zap.Error(err))
		responses.Error(c, http.StatusInternalServerError, "Não foi possível gerar o relatório", err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(report, format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// analyze reads the upload, runs the service and writes the error response
// itself when it fails.
func (h *DifalHandler) analyze(c *gin.Context) (*domain.Report, bool) {
	spedFileHeader, err := c.FormFile("spedFile")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo SPED não encontrado ou inválido")
		return nil, false
	}

	var form calculateForm
	if err := c.ShouldBind(&form); err != nil {
		responses.Error(c, http.StatusUnprocessableEntity, "Parâmetros de cálculo inválidos", err.Error())
		return nil, false
	}
	cfg := form.apply(h.defaults)

	var benefitWarnings []string
	if benefitsHeader, err := c.FormFile("benefitsFile"); err == nil {
		file, err := benefitsHeader.Open()
		if err != nil {
			responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir a planilha de benefícios")
			return nil, false
		}
		defer file.Close()

		config, warnings, err := benefits.ParseSheet(benefitsHeader.Filename, file, "")
		if err != nil {
			responses.Error(c, http.StatusBadRequest, "Planilha de benefícios inválida", err.Error())
			return nil, false
		}
		cfg.Benefits = config
		benefitWarnings = warnings
	}

	spedFile, err := spedFileHeader.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o arquivo SPED")
		return nil, false
	}
	defer spedFile.Close()

	report, err := h.service.Analyze(c.Request.Context(), spedFile, cfg)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	report.Diagnostics.BenefitWarnings = append(benefitWarnings, report.Diagnostics.BenefitWarnings...)
	return report, true
}

func (h *DifalHandler) fail(c *gin.Context, err error) {
	var cfgErr *domain.ConfigurationError
	var decodeErr *domain.DecodeError
	switch {
	case errors.As(err, &cfgErr):
		responses.Error(c, http.StatusUnprocessableEntity, "Configuração de cálculo inválida", cfgErr.Error())
	case errors.As(err, &decodeErr):
		responses.Error(c, http.StatusBadRequest, "Arquivo SPED ilegível", err.Error())
	default:
		responses.Error(c, http.StatusInternalServerError, "Erro no cálculo de DIFAL", err.Error())
	}
}
