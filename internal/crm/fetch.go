package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/entityops/einfiler/api/schemas"
)

// caseQueryFields is the relationship-traversing field list for one case
// pull; the account branch carries the filing credentials, the entity
// branch the business facts.
var caseQueryFields = []string{
	"JSON_Summary__c",
	"Summary__c",
	"CA_Entity_State_Account__r.Username__c",
	"CA_Entity_State_Account__r.Password__c",
	"CA_Entity_State_Account__r.First_Security_Question__c",
	"CA_Entity_State_Account__r.First_Security_Answer__c",
	"CA_Entity_State_Account__r.Second_Security_Question__c",
	"CA_Entity_State_Account__r.Second_Security_Answer__c",
	"CA_Entity_State_Account__r.Third_Security_Question__c",
	"CA_Entity_State_Account__r.Third_Security_Answer__c",
	"CA_Entity_State_Account__r.Fourth_Security_Question__c",
	"CA_Entity_State_Account__r.Fourth_Security_Answer__c",
	"CA_Entity_State_Account__r.PIN_Number__c",
	"Entity__r.Name",
	"Entity__r.Formation_Date__c",
	"Entity__r.Entity_Type__c",
	"Entity__r.Business_Category__c",
	"Entity__r.Business_Description__c",
	"Entity__r.EIN__c",
	"Entity_State__r.Quarter_of_First_Payroll__c",
}

type accountRel struct {
	Username               string `json:"Username__c"`
	Password               string `json:"Password__c"`
	FirstSecurityQuestion  string `json:"First_Security_Question__c"`
	FirstSecurityAnswer    string `json:"First_Security_Answer__c"`
	SecondSecurityQuestion string `json:"Second_Security_Question__c"`
	SecondSecurityAnswer   string `json:"Second_Security_Answer__c"`
	ThirdSecurityQuestion  string `json:"Third_Security_Question__c"`
	ThirdSecurityAnswer    string `json:"Third_Security_Answer__c"`
	FourthSecurityQuestion string `json:"Fourth_Security_Question__c"`
	FourthSecurityAnswer   string `json:"Fourth_Security_Answer__c"`
	PINNumber              string `json:"PIN_Number__c"`
}

type entityRel struct {
	Name                string `json:"Name"`
	FormationDate       string `json:"Formation_Date__c"`
	EntityType          string `json:"Entity_Type__c"`
	BusinessCategory    string `json:"Business_Category__c"`
	BusinessDescription string `json:"Business_Description__c"`
	EIN                 string `json:"EIN__c"`
}

type entityStateRel struct {
	QuarterOfFirstPayroll string `json:"Quarter_of_First_Payroll__c"`
}

type caseRow struct {
	JSONSummary string          `json:"JSON_Summary__c"`
	Summary     string          `json:"Summary__c"`
	Account     *accountRel     `json:"CA_Entity_State_Account__r"`
	Entity      *entityRel      `json:"Entity__r"`
	EntityState *entityStateRel `json:"Entity_State__r"`
}

// escapeSoql neutralizes quote characters in a user-supplied SOQL literal.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// FetchCase pulls one case record and shapes it into the run input. A
// missing record is an error; absent relationship branches are tolerated.
func FetchCase(ctx context.Context, q Querier, object, recordID string) (schemas.CaseRecord, error) {
	soql := fmt.Sprintf("SELECT %s FROM %s WHERE Id = '%s' LIMIT 1",
		strings.Join(caseQueryFields, ", "), object, escapeSoql(recordID))

	var rows []caseRow
	if err := q.Query(ctx, soql, &rows); err != nil {
		return schemas.CaseRecord{}, fmt.Errorf("failed to fetch case %s: %w", recordID, err)
	}
	if len(rows) == 0 {
		return schemas.CaseRecord{}, fmt.Errorf("no %s record found with id %s", object, recordID)
	}

	row := rows[0]
	record := schemas.CaseRecord{
		RecordID:    recordID,
		JSONSummary: row.JSONSummary,
		SummaryRaw:  row.Summary,
	}

	if row.Entity != nil {
		record.EntityName = row.Entity.Name
		record.FormationDate = row.Entity.FormationDate
		record.EntityType = row.Entity.EntityType
		record.BusinessCategory = row.Entity.BusinessCategory
		record.BusinessDescription = row.Entity.BusinessDescription
		record.EIN = row.Entity.EIN
	}
	if row.EntityState != nil {
		record.QuarterOfFirstPayroll = row.EntityState.QuarterOfFirstPayroll
	}
	if row.Account != nil {
		record.PINNumber = row.Account.PINNumber
		record.AdditionalFields = map[string]any{
			"username":                 row.Account.Username,
			"password":                 row.Account.Password,
			"first_security_question":  row.Account.FirstSecurityQuestion,
			"first_security_answer":    row.Account.FirstSecurityAnswer,
			"second_security_question": row.Account.SecondSecurityQuestion,
			"second_security_answer":   row.Account.SecondSecurityAnswer,
			"third_security_question":  row.Account.ThirdSecurityQuestion,
			"third_security_answer":    row.Account.ThirdSecurityAnswer,
			"fourth_security_question": row.Account.FourthSecurityQuestion,
			"fourth_security_answer":   row.Account.FourthSecurityAnswer,
		}
	}

	return record, nil
}
