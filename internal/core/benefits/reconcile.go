package benefits

import (
	"fmt"
	"sort"

	"github.com/schollz/closestmatch"

	"difal-service/internal/domain"
)

// Reconcile warns about benefits configured for item codes that the catalog
// does not know, suggesting the closest catalogued code.
func Reconcile(config domain.BenefitConfig, catalog domain.Catalog) []string {
	var missing []string
	for code := range config {
		if _, ok := catalog[code]; !ok {
			missing = append(missing, code)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)

	codes := catalog.Codes()
	sort.Strings(codes)
	var cm *closestmatch.ClosestMatch
	if len(codes) > 0 {
		cm = closestmatch.New(codes, []int{2, 3, 4})
	}

	warnings := make([]string, 0, len(missing))
	for _, code := range missing {
		msg := fmt.Sprintf("benefício configurado para o item %s, que não consta no cadastro 0200", code)
		if cm != nil {
			if match := cm.Closest(code); match != "" {
				msg += fmt.Sprintf("; você quis dizer %q?", match)
			}
		}
		warnings = append(warnings, msg)
	}
	return warnings
}
