package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/entityops/einfiler/api/schemas"
)

// Flattened-key paths of the fields the wizard consumes. These mirror the
// structure of the CRM's JSON summary blob.
const (
	keyFirstName       = "party_0_data_first_name_value"
	keyLastName        = "party_0_data_last_name_value"
	keyPhone           = "party_0_data_phone_number_value"
	keyFirstPayroll    = "employee_information_data_first_payroll_date_value"
	keyBizCategory     = "business_information_data_business_category_value"
	keyBizDescription  = "business_information_data_business_description_value"
	keyLegalName       = "business_information_data_legal_business_name_value"
	keyPhysicalStreet1 = "physical_business_address_data_street1_value"
	keyPhysicalStreet2 = "physical_business_address_data_street2_value"
	keyPhysicalCity    = "physical_business_address_data_city_value"
	keyPhysicalState   = "physical_business_address_data_state_value"
	keyPhysicalZip     = "physical_business_address_data_zipcode_value"
	keyMailingStreet1  = "mailing_address_data_street1_value"
	keyMailingStreet2  = "mailing_address_data_street2_value"
	keyMailingCity     = "mailing_address_data_city_value"
	keyMailingState    = "mailing_address_data_state_value"
	keyMailingZip      = "mailing_address_data_zipcode_value"
)

// Documented defaults for absent optional fields. A run with every optional
// field missing completes using exactly these.
const (
	defaultFirstName     = "Rob"
	defaultLastName      = "Chuchla"
	defaultPhone         = "2812173123"
	defaultEntityType    = "Limited Liability Company (LLC)"
	defaultFirstPayroll  = "03/31/2025"
	defaultFormationDate = "2024-06-24"
	defaultBizCategory   = "Finance"
	defaultLegalName     = "Lane Four Capital Partners LLC"
	defaultStreet1       = "3315 Cherry Ln"
	defaultCity          = "Austin"
	defaultState         = "TX"
	defaultZip           = "78703"
)

// Address is one postal address as entered into the wizard.
type Address struct {
	Street1 string
	Street2 string
	City    string
	State   string
	Zip     string
}

// SameAs reports whether other names the same delivery point. An empty
// component on the other side counts as matching: the CRM leaves mailing
// fields blank when they were not separately specified.
func (a Address) SameAs(other Address) bool {
	same := func(p, m string) bool { return p == m || (m == "" && p != "") }
	return same(a.Street1, other.Street1) &&
		same(a.City, other.City) &&
		same(a.State, other.State) &&
		same(a.Zip, other.Zip)
}

// Fields is the fully resolved, defaulted field set for one run. This is
// the only shape the wizard driver reads from.
type Fields struct {
	RecordID string

	FirstName string
	LastName  string
	PIN       string
	Phone     string

	EntityType            string
	QuarterOfFirstPayroll string
	FormationDate         string
	BusinessCategory      string
	BusinessDescription   string
	LegalName             string

	Physical Address
	Mailing  Address

	// Summary holds the parsed HTML summary rows; Flat holds the
	// flattened JSON summary. Both are kept for the debug export.
	Summary map[string]string
	Flat    map[string]any
}

// SSNParts splits the PIN into the wizard's 3/2/4 SSN inputs, substituting
// placeholder digits when the PIN is short or absent.
func (f Fields) SSNParts() (first3, mid2, last4 string) {
	first3, mid2 = "000", "00"
	if len(f.PIN) >= 3 {
		first3 = f.PIN[:3]
	}
	if len(f.PIN) >= 5 {
		mid2 = f.PIN[3:5]
	}
	if len(f.PIN) >= 4 {
		last4 = f.PIN[len(f.PIN)-4:]
	}
	return first3, mid2, last4
}

// Resolve parses both summary blobs on the record and merges them with the
// record's explicit fields, applying the documented defaults. Malformed
// blobs are logged and ignored; Resolve never fails.
func Resolve(record schemas.CaseRecord, logger *zap.Logger) Fields {
	summary := ParseSummaryHTML(record.SummaryRaw)

	flat, err := FlattenJSON(record.JSONSummary)
	if err != nil {
		logger.Error("Failed to decode JSON summary; proceeding on defaults.",
			zap.String("record_id", record.RecordID), zap.Error(err))
	} else if len(flat) > 0 {
		logger.Debug("Flattened JSON summary.",
			zap.String("record_id", record.RecordID), zap.Strings("keys", Keys(flat)))
	}

	pick := func(explicit, key, fallback string) string {
		if strings.TrimSpace(explicit) != "" {
			return strings.TrimSpace(explicit)
		}
		return GetString(flat, key, fallback)
	}

	f := Fields{
		RecordID:  record.RecordID,
		FirstName: GetString(flat, keyFirstName, defaultFirstName),
		LastName:  GetString(flat, keyLastName, defaultLastName),
		PIN:       strings.TrimSpace(record.PINNumber),
		Phone:     GetString(flat, keyPhone, defaultPhone),

		EntityType:            pick(record.EntityType, "", defaultEntityType),
		QuarterOfFirstPayroll: pick(record.QuarterOfFirstPayroll, keyFirstPayroll, defaultFirstPayroll),
		FormationDate:         pick(record.FormationDate, "", defaultFormationDate),
		BusinessCategory:      pick(record.BusinessCategory, keyBizCategory, defaultBizCategory),
		BusinessDescription:   pick(record.BusinessDescription, keyBizDescription, ""),
		LegalName:             pick(record.EntityName, keyLegalName, defaultLegalName),

		Physical: Address{
			Street1: GetString(flat, keyPhysicalStreet1, defaultStreet1),
			Street2: GetString(flat, keyPhysicalStreet2, ""),
			City:    GetString(flat, keyPhysicalCity, defaultCity),
			State:   GetString(flat, keyPhysicalState, defaultState),
			Zip:     GetString(flat, keyPhysicalZip, defaultZip),
		},
		Mailing: Address{
			Street1: GetString(flat, keyMailingStreet1, defaultStreet1),
			Street2: GetString(flat, keyMailingStreet2, ""),
			City:    GetString(flat, keyMailingCity, defaultCity),
			State:   GetString(flat, keyMailingState, defaultState),
			Zip:     GetString(flat, keyMailingZip, defaultZip),
		},

		Summary: summary,
		Flat:    flat,
	}

	return f
}
