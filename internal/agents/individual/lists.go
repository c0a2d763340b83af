// Package individual implements the ten per-subject agents fanned out for
// an individual verification (spec.md §4.4), grounded on the corresponding
// app/agents/kyc/*.py agents in the original.
package individual

// sanctionedCountries mirrors the original's _check_country_sanctions list
// in app/agents/kyc/ofac.py, ISO-3166 alpha-2 codes only. OfacVerificationAgent
// upper-cases the country before the lookup; country names are not mapped to
// codes.
var sanctionedCountries = map[string]struct{}{
	"KP": {}, "IR": {}, "SY": {}, "CU": {}, "RU": {}, "BY": {},
}

func isSanctionedCountry(code string) bool {
	_, ok := sanctionedCountries[code]
	return ok
}

// disposableEmailDomains mirrors the original's suspicious_domains list in
// app/agents/kyc/email_phone_ip.py.
var disposableEmailDomains = []string{"tempmail.com", "throwaway.com", "fakeemail.com"}

// govtIDCheckNames is the fixed list of 14 provider ID-checks
// GovtIdVerification emits one check per item for (spec.md §4.4).
var govtIDCheckNames = []string{
	"barcode_match",
	"compromised_submission",
	"allowed_country",
	"allowed_id_type",
	"electronic_replica",
	"expiration",
	"fabrication",
	"inconsistent_repeat",
	"po_box",
	"portrait_clarity",
	"portrait",
	"selfie_comparison",
	"tamper_detection",
	"barcode_inconsistency",
}
