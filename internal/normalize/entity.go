package normalize

import "strings"

// RadioViewAdditional is the wizard's catch-all entity category. Unknown
// entity types land here rather than failing the run.
const RadioViewAdditional = "viewadditional"

// entityRadios maps CRM entity-type strings to the id of the wizard's
// entity-category radio. The compacted spellings cover CRM records whose
// picklist values were stored without spaces or parentheses.
var entityRadios = map[string]string{
	"Limited Liability Company (LLC)":            "limited",
	"C-Corporation":                              "corporations",
	"S-Corporation":                              "corporations",
	"Non-Profit Corporation":                     "corporations",
	"ProfessionalLimitedLiabilityCompany (PLLC)": "limited",
	"ProfessionalCorporation":                    "corporations",
	"Sole Proprietorship":                        "sole",
	"Partnership":                                "partnerships",
	"LimitedPartnership":                         "partnerships",
	"LimitedLiabilityPartnership":                "partnerships",
	"Corporation":                                "corporations",
	"GeneralPartnership":                         "partnerships",
	"Trusteeship":                                "trusts",
	"LLC":                                        "limited",
	"LLP":                                        "partnerships",
	"LimitedLiabilityCompany":                    "limited",
	"ProfessionalLimitedLiabilityCompany":        "limited",
	"Estate":                                     "estate",
}

// EntityRadio maps an entity-type string to its radio id. Lookup is tried
// verbatim (trimmed) first, then with spaces and parentheses removed.
// Unmapped types return RadioViewAdditional with ok=false so the caller can
// log the miss while still advancing.
func EntityRadio(entityType string) (radio string, ok bool) {
	key := strings.TrimSpace(entityType)
	if radio, ok = entityRadios[key]; ok {
		return radio, true
	}
	compact := strings.NewReplacer(" ", "", "(", "", ")", "").Replace(key)
	if radio, ok = entityRadios[compact]; ok {
		return radio, true
	}
	return RadioViewAdditional, false
}
