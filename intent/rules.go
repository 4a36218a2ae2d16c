package intent

import (
	"regexp"
	"strings"

	"github.com/voxflow/voxflow/types"
)

// trigger is one weighted pattern for a category. A clause's score for a
// category is the highest confidence among its matching triggers.
type trigger struct {
	pattern    *regexp.Regexp
	confidence float64
}

// rule binds an intent category to its triggers, parameter extractor and
// required parameters. Rule declaration order is the deterministic
// tie-break when two categories score equally.
type rule struct {
	category types.IntentCategory
	triggers []trigger
	// extract pulls parameters out of the clause text.
	extract func(clause string) map[string]any
	// required lists parameters a complete intent must carry.
	required []string
	// deferrable lists required parameters the planner may bind to an
	// upstream step's output instead of a literal (patient identity flows
	// forward through compound commands).
	deferrable []string
}

// labTerms maps spoken lab abbreviations to their full order descriptions.
var labTerms = map[string]string{
	"cbc":        "Complete Blood Count",
	"bmp":        "Basic Metabolic Panel",
	"cmp":        "Comprehensive Metabolic Panel",
	"lipid":      "Lipid Panel",
	"hba1c":      "Hemoglobin A1C",
	"a1c":        "Hemoglobin A1C",
	"tsh":        "Thyroid Stimulating Hormone",
	"urinalysis": "Urinalysis",
	"culture":    "Blood Culture",
}

// imagingTerms maps spoken imaging phrases to order descriptions.
var imagingTerms = map[string]string{
	"chest x-ray": "Chest X-Ray",
	"chest xray":  "Chest X-Ray",
	"x-ray":       "X-Ray",
	"xray":        "X-Ray",
	"ct":          "CT",
	"mri":         "MRI",
	"ultrasound":  "Ultrasound",
	"echo":        "Echocardiogram",
}

var (
	rePatientID   = regexp.MustCompile(`\bpatient\s+(?:id\s+)?(\d+)\b`)
	reBareID      = regexp.MustCompile(`\b(\d{3,})\b`)
	rePatientName = regexp.MustCompile(`(?:patient|for|chart for)\s+([A-Z][A-Za-z'-]+(?:\s+[A-Z][A-Za-z'-]+)?)`)
	reSearchTerm  = regexp.MustCompile(`(?i)(?:find|search(?:\s+for)?|look\s*up)\s+(?:patient\s+)?([A-Za-z][A-Za-z'\s-]*[A-Za-z])`)
	reMedication  = regexp.MustCompile(`(?i)(?:prescribe|start|give)\s+([a-z]+)\s*(\d+\s*(?:mg|mcg|g|ml|units?))?\s*(daily|twice daily|bid|tid|qid|nightly|weekly)?`)
	reSpecialty   = regexp.MustCompile(`(?i)(?:refer(?:ral)?\s+(?:\w+\s+)?to|consult)\s+([a-z]+(?:ology|iatry|ics|ery)?)`)
)

// extractPatientIdentity pulls patient_id and/or patient_name from a
// clause. A numeric identifier wins over a name.
func extractPatientIdentity(clause string, params map[string]any) {
	if m := rePatientID.FindStringSubmatch(clause); m != nil {
		params["patient_id"] = m[1]
		return
	}
	if m := rePatientName.FindStringSubmatch(clause); m != nil {
		params["patient_name"] = strings.TrimSpace(m[1])
	}
}

// matchTerm finds the longest term of the map present in the clause.
func matchTerm(clause string, terms map[string]string) (string, bool) {
	lower := strings.ToLower(clause)
	best := ""
	for term := range terms {
		if strings.Contains(lower, term) && len(term) > len(best) {
			best = term
		}
	}
	if best == "" {
		return "", false
	}
	return terms[best], true
}

// defaultRules returns the built-in classification rules in declaration
// order. Order matters: it is the deterministic tie-break.
func defaultRules() []rule {
	return []rule{
		{
			category: types.IntentPatientSearch,
			triggers: []trigger{
				{regexp.MustCompile(`(?i)\b(?:find|search(?:\s+for)?|look\s*up)\b.*\bpatient\b`), 0.92},
				{regexp.MustCompile(`(?i)\b(?:find|search(?:\s+for)?|look\s*up)\s+[A-Z]`), 0.72},
				{regexp.MustCompile(`(?i)\bdemographics\b`), 0.70},
			},
			extract: func(clause string) map[string]any {
				params := map[string]any{}
				// "find patient 12345" is an ID lookup, not a name search.
				if id := rePatientID.FindStringSubmatch(clause); id != nil {
					params["query"] = id[1]
					return params
				}
				if m := reSearchTerm.FindStringSubmatch(clause); m != nil {
					params["query"] = strings.TrimSpace(m[1])
				}
				return params
			},
			required: []string{"query"},
		},
		{
			category: types.IntentChartOpen,
			triggers: []trigger{
				{regexp.MustCompile(`(?i)\bopen\b.*\bchart\b`), 0.92},
				{regexp.MustCompile(`(?i)\bchart\b`), 0.65},
				{regexp.MustCompile(`(?i)\bmedical\s+record\b`), 0.70},
			},
			extract: func(clause string) map[string]any {
				params := map[string]any{}
				extractPatientIdentity(clause, params)
				if _, ok := params["patient_id"]; !ok {
					if m := reBareID.FindStringSubmatch(clause); m != nil {
						params["patient_id"] = m[1]
					}
				}
				return params
			},
			required:   []string{"patient_id"},
			deferrable: []string{"patient_id"},
		},
		{
			category: types.IntentOrderLab,
			triggers: []trigger{
				{regexp.MustCompile(`(?i)\border\b.*\b(?:cbc|bmp|cmp|lipid|hba1c|a1c|tsh|urinalysis|culture|lab)`), 0.94},
				{regexp.MustCompile(`(?i)\b(?:cbc|bmp|cmp|hba1c|tsh|urinalysis)\b`), 0.78},
				{regexp.MustCompile(`(?i)\blab(?:s|\s+work)?\b`), 0.62},
			},
			extract: func(clause string) map[string]any {
				params := map[string]any{}
				extractPatientIdentity(clause, params)
				if desc, ok := matchTerm(clause, labTerms); ok {
					params["lab_type"] = desc
				}
				return params
			},
			required:   []string{"patient_id", "lab_type"},
			deferrable: []string{"patient_id"},
		},
		{
			category: types.IntentOrderImaging,
			triggers: []trigger{
				{regexp.MustCompile(`(?i)\b(?:order|get)\b.*\b(?:x-?ray|ct|mri|ultrasound|echo|imaging)\b`), 0.94},
				{regexp.MustCompile(`(?i)\b(?:x-?ray|mri|ultrasound|echocardiogram)\b`), 0.76},
			},
			extract: func(clause string) map[string]any {
				params := map[string]any{}
				extractPatientIdentity(clause, params)
				if desc, ok := matchTerm(clause, imagingTerms); ok {
					params["imaging_type"] = desc
				}
				return params
			},
			required:   []string{"patient_id", "imaging_type"},
			deferrable: []string{"patient_id"},
		},
		{
			category: types.IntentOrderMedication,
			triggers: []trigger{
				{regexp.MustCompile(`(?i)\bprescribe\b`), 0.94},
				{regexp.MustCompile(`(?i)\bmedication\b`), 0.68},
				{regexp.MustCompile(`(?i)\bstart\s+\w+\s+\d+\s*(?:mg|mcg)\b`), 0.82},
			},
			extract: func(clause string) map[string]any {
				params := map[string]any{}
				extractPatientIdentity(clause, params)
				if m := reMedication.FindStringSubmatch(clause); m != nil {
					params["medication"] = strings.ToLower(m[1])
					if m[2] != "" {
						params["dosage"] = strings.ReplaceAll(m[2], " ", "")
					}
					if m[3] != "" {
						params["frequency"] = strings.ToLower(m[3])
					}
				}
				return params
			},
			required:   []string{"patient_id", "medication"},
			deferrable: []string{"patient_id"},
		},
		{
			category: types.IntentOrderList,
			triggers: []trigger{
				{regexp.MustCompile(`(?i)\b(?:show|list)\b.*\borders\b`), 0.92},
				{regexp.MustCompile(`(?i)\border\s+history\b`), 0.90},
			},
			extract: func(clause string) map[string]any {
				params := map[string]any{}
				extractPatientIdentity(clause, params)
				return params
			},
			required:   []string{"patient_id"},
			deferrable: []string{"patient_id"},
		},
		{
			category: types.IntentMessageSend,
			triggers: []trigger{
				{regexp.MustCompile(`(?i)\b(?:send|notify)\b.*\b(?:message|notification|reminder|results?)\b`), 0.92},
				{regexp.MustCompile(`(?i)\bnotify\b`), 0.80},
				{regexp.MustCompile(`(?i)\bsend\b.*\bnotification\b`), 0.90},
				{regexp.MustCompile(`(?i)\bmessage\b`), 0.66},
			},
			extract: func(clause string) map[string]any {
				params := map[string]any{}
				extractPatientIdentity(clause, params)
				lower := strings.ToLower(clause)
				switch {
				case strings.Contains(lower, "appointment"):
					params["message_type"] = "appointment"
				case strings.Contains(lower, "lab") || strings.Contains(lower, "result"):
					params["message_type"] = "lab_results"
				default:
					params["message_type"] = "general"
				}
				return params
			},
			required:   []string{"patient_id"},
			deferrable: []string{"patient_id"},
		},
		{
			category: types.IntentReferralCreate,
			triggers: []trigger{
				{regexp.MustCompile(`(?i)\brefer(?:ral)?\b`), 0.92},
				{regexp.MustCompile(`(?i)\bconsult\b`), 0.78},
			},
			extract: func(clause string) map[string]any {
				params := map[string]any{}
				extractPatientIdentity(clause, params)
				if m := reSpecialty.FindStringSubmatch(clause); m != nil {
					params["specialty"] = strings.ToLower(m[1])
				}
				return params
			},
			required:   []string{"patient_id", "specialty"},
			deferrable: []string{"patient_id"},
		},
	}
}

// builtinRules is the shared, immutable rule set.
var builtinRules = defaultRules()

// DeferrableParams returns the dependency-resolvable required parameters
// for a category. The planner consults this when deciding whether a
// missing literal can be bound to an upstream step instead of failing.
func DeferrableParams(category types.IntentCategory) []string {
	for _, r := range builtinRules {
		if r.category == category {
			return r.deferrable
		}
	}
	return nil
}

// RequiredParams returns the required parameter names for a category.
func RequiredParams(category types.IntentCategory) []string {
	for _, r := range builtinRules {
		if r.category == category {
			return r.required
		}
	}
	return nil
}
