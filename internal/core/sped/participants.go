package sped

import (
	"difal-service/internal/core/rates"
	"difal-service/internal/domain"
)

// Positions of the 0150 record.
const (
	partCode     = 1
	partName     = 2
	partCNPJ     = 4
	partStateReg = 6
	partMunCode  = 7
)

// IndexParticipants maps participant codes to their data, deriving the UF from
// the IBGE municipality code.
func IndexParticipants(records []domain.FiscalRecord) domain.ParticipantIndex {
	index := make(domain.ParticipantIndex, len(records))
	for _, rec := range records {
		code := rec.Field(partCode)
		if code == "" {
			continue
		}
		mun := rec.Field(partMunCode)
		index[code] = domain.Participant{
			Code:             code,
			Name:             rec.Field(partName),
			CNPJ:             rec.Field(partCNPJ),
			StateReg:         rec.Field(partStateReg),
			MunicipalityCode: mun,
			UF:               rates.UFFromMunicipality(mun),
		}
	}
	return index
}
