// Package format renders a compliance finding as a Slack message.
//
// Links use Slack's `<url|text>` markup. Every link builder is a small pure
// function of the finding fields it needs; Text assembles them into the fixed
// message template consumers already parse.
package format

import (
	"fmt"
	"strings"

	"github.com/findingrelay/findingrelay/pkg/types"
)

const (
	// notAvailable is rendered for absent rule IDs.
	notAvailable = "n/a"

	// securityGroup is the entity type that links to the security-group view.
	securityGroup = "SecurityGroup"

	// assetQueryPrefix and assetQuerySuffix bracket the entity ID inside the
	// URL-encoded protected-asset search filter.
	assetQueryPrefix = "/v2/protected-asset/index?query=" +
		"%7B%22filter%22:%7B%22fields%22:%5B%7B%22name%22:%22organizationalUnitId%22," +
		"%22value%22:%2200000000-0000-0000-0000-000000000000%22%7D%5D," +
		"%22freeTextPhrase%22:%22"
	assetQuerySuffix = "%22%7D%7D"
)

// Formatter renders findings against a fixed pair of base URLs.
type Formatter struct {
	console string
	gsl     string
}

// New returns a Formatter linking to the given console and rule
// documentation sites. Trailing slashes are ignored.
func New(consoleURL, gslURL string) *Formatter {
	return &Formatter{
		console: strings.TrimRight(consoleURL, "/"),
		gsl:     strings.TrimRight(gslURL, "/"),
	}
}

// Text renders f as the complete message body. f must have passed
// Finding.Validate.
func (fm *Formatter) Text(f *types.Finding) string {
	var b strings.Builder
	b.WriteString("*Dome9 Compliance & Governance* \n")
	b.WriteString(f.Rule.Name)
	b.WriteString("\n")
	line(&b, "Report Time", f.ReportTime)
	line(&b, "Status", f.Status)
	line(&b, "Severity Level", f.Rule.Severity)
	line(&b, "Region", f.EffectiveRegion())
	line(&b, "Rule", f.Rule.Name)
	line(&b, "Rule ID", fm.RuleID(f.Rule.RuleID))
	line(&b, "Account", fm.Account(f.Account))
	line(&b, "Entity Type", f.Entity.Type)
	b.WriteString(">*Entity ID*: ")
	b.WriteString(fm.EntityID(f.Entity.Type, f.Account.Vendor, f.Entity.ID))
	return b.String()
}

// line writes one quoted label/value row. Rows end with a space before the
// newline; downstream parsers depend on it.
func line(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, ">*%s*: %s \n", label, value)
}

// RuleID links a rule ID to its documentation page, or returns "n/a".
func (fm *Formatter) RuleID(ruleID string) string {
	if ruleID == "" {
		return notAvailable
	}
	return link(fm.gsl+"/"+ruleID+".html", ruleID)
}

// EntityID links an entity to its console view. Security groups have a
// dedicated page; every other type links to a protected-asset search.
func (fm *Formatter) EntityID(entityType, vendor, id string) string {
	if entityType == securityGroup {
		return link(fm.console+"/v2/security-group/"+strings.ToLower(vendor)+"/"+id, id)
	}
	return link(fm.console+assetQueryPrefix+id+assetQuerySuffix, id)
}

// AccountID links an AWS account number to its console sign-in page.
// Accounts of other vendors are rendered bare.
func AccountID(vendor, id string) string {
	if strings.ToLower(vendor) != "aws" {
		return id
	}
	return link("https://"+id+".signin.aws.amazon.com/console/", id)
}

// Account renders the account name linked to its console page, followed by
// the vendor and account ID.
func (fm *Formatter) Account(a *types.Account) string {
	u := fm.console + "/v2/cloud-account/" + strings.ToLower(a.Vendor) + "/" + a.CloudAccountID
	return fmt.Sprintf("%s (%s | %s)", link(u, a.Name), a.Vendor, AccountID(a.Vendor, a.ID))
}

func link(url, text string) string {
	return "<" + url + "|" + text + ">"
}
