package rates

// ibgeStatePrefix maps the first two digits of an IBGE municipality code to the UF.
var ibgeStatePrefix = map[string]string{
	"11": "RO", "12": "AC", "13": "AM", "14": "RR", "15": "PA", "16": "AP", "17": "TO",
	"21": "MA", "22": "PI", "23": "CE", "24": "RN", "25": "PB", "26": "PE", "27": "AL", "28": "SE", "29": "BA",
	"31": "MG", "32": "ES", "33": "RJ", "35": "SP",
	"41": "PR", "42": "SC", "43": "RS",
	"50": "MS", "51": "MT", "52": "GO", "53": "DF",
}

// UFFromMunicipality derives the UF from a 7-digit IBGE municipality code.
// Foreign participants (code 9999999) and malformed codes yield "".
func UFFromMunicipality(code string) string {
	if len(code) != 7 {
		return ""
	}
	return ibgeStatePrefix[code[:2]]
}
