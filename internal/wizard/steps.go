package wizard

import "context"

// Control ids and selectors on the government wizard's pages. The submit
// buttons carry no ids, so they are matched by name/value.
const (
	anchorLeftContent = "#individual-leftcontent"

	selBegin    = `input[type="submit"][name="submit"][value="Begin Application >>"]`
	selContinue = `input[type="submit"][value="Continue >>"]`
	selAccept   = `input[type="submit"][name="Submit"][value="Accept As Entered"]`

	idMemberCount = "#numbermem"
	idMemberState = "#state"

	radioMultiMember = "radio_n"
	radioNewBusiness = "newbiz"
	radioIAmSole     = "iamsole"

	idFirstName = "#responsiblePartyFirstName"
	idLastName  = "#responsiblePartyLastName"
	idSSN3      = "#responsiblePartySSN3"
	idSSN2      = "#responsiblePartySSN2"
	idSSN4      = "#responsiblePartySSN4"

	idStreet     = "#physicalAddressStreet"
	idCity       = "#physicalAddressCity"
	idAddrState  = "#physicalAddressState"
	idZip        = "#physicalAddressZipCode"
	idPhoneFirst = "#phoneFirst3"
	idPhoneMid   = "#phoneMiddle3"
	idPhoneLast  = "#phoneLast4"

	radioSameAddress      = "radioAnotherAddress_n"
	radioDifferentAddress = "radioAnotherAddress_y"

	idLegalName     = "#businessOperationalLegalName"
	idCounty        = "#businessOperationalCounty"
	idArticlesState = "#articalsFiledState"
	idStartMonth    = "#BUSINESS_OPERATIONAL_MONTH_ID"
	idStartYear     = "#BUSINESS_OPERATIONAL_YEAR_ID"

	radioOther         = "other"
	idPleaseSpecify    = "#pleasespecify"
	radioReceiveOnline = "receiveonline"
)

// complianceRadios are the "No" answers on the tax-obligation page.
var complianceRadios = []struct {
	id    string
	label string
}{
	{"radioTrucking_n", "Trucking (No)"},
	{"radioInvolveGambling_n", "Involves Gambling (No)"},
	{"radioExciseTax_n", "Excise Tax (No)"},
	{"radioSellTobacco_n", "Sells Tobacco (No)"},
	{"radioHasEmployees_n", "Has Employees (No)"},
}

// defaultBusinessPurpose fills the free-text activity field when the CRM
// record carries no description.
const defaultBusinessPurpose = "Any and all lawful business"

// FailurePolicy declares what a step's failure does to the run.
type FailurePolicy int

const (
	// Fatal aborts the run; the wizard cannot meaningfully continue.
	Fatal FailurePolicy = iota
	// Ignorable logs the failure and advances; the page tolerates the
	// control being left at its default.
	Ignorable
)

func (p FailurePolicy) String() string {
	if p == Ignorable {
		return "ignorable"
	}
	return "fatal"
}

// Step is one transition of the wizard machine: it acts on the current
// page and, on success, leaves the browser on the next page.
type Step struct {
	State  string
	Policy FailurePolicy
	// Skip disables the step for this run (conditional branches).
	Skip bool
	Run  func(ctx context.Context) error
}
