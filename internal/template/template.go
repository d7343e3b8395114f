package template

import "strings"

// Industry is the closed set of known factsheet templates.
type Industry string

const (
	Technology   Industry = "technology"
	Construction Industry = "construction"
	Fintech      Industry = "fintech"
	Healthcare   Industry = "healthcare"
	Generic      Industry = "generic"
)

// Section is one named slot of a factsheet template. Query is the
// canonical retrieval text used to gather evidence for the slot.
type Section struct {
	Name  string
	Query string
}

// Template is an ordered list of sections for one industry.
type Template struct {
	Industry Industry
	Sections []Section
}

// aliases maps normalized industry labels onto registry keys.
var aliases = map[string]Industry{
	"tech":         Technology,
	"technology":   Technology,
	"software":     Technology,
	"saas":         Technology,
	"it":           Technology,
	"construction": Construction,
	"building":     Construction,
	"realestate":   Construction,
	"real estate":  Construction,
	"finance":      Fintech,
	"fintech":      Fintech,
	"banking":      Fintech,
	"health":       Healthcare,
	"healthcare":   Healthcare,
	"medical":      Healthcare,
}

// Resolve maps an industry label to its template. Matching is
// case-insensitive; unknown labels fall back to the generic template.
// fellBack reports that the fallback was taken so callers can log it.
func Resolve(label string) (Template, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if ind, ok := aliases[key]; ok {
		return registry[ind], false
	}
	return registry[Generic], true
}

var registry = map[Industry]Template{
	Technology: {
		Industry: Technology,
		Sections: []Section{
			{Name: "Company Overview", Query: "company overview mission what the company does"},
			{Name: "Products and Services", Query: "products services software platform offerings"},
			{Name: "Technology Stack", Query: "technology stack infrastructure engineering platform architecture"},
			{Name: "Market Position", Query: "market position customers competitors industry standing"},
			{Name: "History and Milestones", Query: "founding history milestones funding acquisitions growth"},
			{Name: "Leadership and Team", Query: "leadership founders executives team size employees"},
		},
	},
	Construction: {
		Industry: Construction,
		Sections: []Section{
			{Name: "Company Overview", Query: "company overview mission what the company does"},
			{Name: "Projects and Capabilities", Query: "construction projects capabilities services portfolio"},
			{Name: "Markets Served", Query: "markets regions sectors commercial residential industrial"},
			{Name: "History and Milestones", Query: "founding history founded year location milestones growth"},
			{Name: "Scale and Operations", Query: "employees revenue offices equipment fleet scale"},
			{Name: "Safety and Certifications", Query: "safety record certifications licenses standards compliance"},
		},
	},
	Fintech: {
		Industry: Fintech,
		Sections: []Section{
			{Name: "Company Overview", Query: "company overview mission what the company does"},
			{Name: "Financial Products", Query: "financial products payments lending banking services"},
			{Name: "Regulation and Compliance", Query: "regulation licenses compliance security standards"},
			{Name: "Market Position", Query: "market position customers partners competitors"},
			{Name: "History and Milestones", Query: "founding history milestones funding rounds growth"},
			{Name: "Leadership and Team", Query: "leadership founders executives team size employees"},
		},
	},
	Healthcare: {
		Industry: Healthcare,
		Sections: []Section{
			{Name: "Company Overview", Query: "company overview mission what the company does"},
			{Name: "Care and Services", Query: "healthcare services treatments specialties patient care"},
			{Name: "Facilities and Coverage", Query: "facilities locations clinics hospitals coverage regions"},
			{Name: "Accreditation and Compliance", Query: "accreditation certifications regulatory compliance quality"},
			{Name: "History and Milestones", Query: "founding history founded year milestones growth"},
			{Name: "Leadership and Team", Query: "leadership physicians executives staff size"},
		},
	},
	Generic: {
		Industry: Generic,
		Sections: []Section{
			{Name: "Company Overview", Query: "company overview mission what the company does"},
			{Name: "Products and Services", Query: "products services offerings solutions"},
			{Name: "Market Position", Query: "market position customers competitors industry"},
			{Name: "History and Milestones", Query: "founding history founded year location milestones"},
			{Name: "Scale and Operations", Query: "employees revenue offices locations scale operations"},
			{Name: "Leadership and Team", Query: "leadership founders executives team"},
		},
	},
}

// Known returns the registered industries in stable order, generic last.
func Known() []Industry {
	return []Industry{Technology, Construction, Fintech, Healthcare, Generic}
}
