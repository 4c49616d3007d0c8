package rates

import "strings"

const (
	interstateSouthToNorth = 7.0
	interstateDefault      = 12.0
)

// importedIndicators are the CST origin digits whose goods carry the 4% rate.
var importedIndicators = map[string]bool{"1": true, "2": true, "3": true, "8": true}

// southSoutheast excludes ES, which is treated as a destination of the 7% rate.
var southSoutheast = map[string]bool{"MG": true, "PR": true, "RJ": true, "RS": true, "SC": true, "SP": true}

// InterstateRate returns the interstate ICMS rate of a route: 4% for imported
// goods, 7% from South/Southeast (except ES) to North, Northeast, Center-West
// and ES, and 12% otherwise. Intrastate operations return 0.
func InterstateRate(originUF, destinationUF, originIndicator string) float64 {
	originUF = strings.ToUpper(originUF)
	destinationUF = strings.ToUpper(destinationUF)
	if originUF == "" || destinationUF == "" || originUF == destinationUF {
		return 0
	}
	if importedIndicators[originIndicator] {
		return importedRate
	}
	if southSoutheast[originUF] && !southSoutheast[destinationUF] {
		return interstateSouthToNorth
	}
	return interstateDefault
}
