package compliance

import "github.com/kirillkom/corporate-agent/internal/core/domain"

// incorporationRequired is the canonical checklist for company incorporation.
// Its order is the order missing documents are reported in.
var incorporationRequired = []domain.DocumentType{
	domain.DocumentArticlesOfAssociation,
	domain.DocumentMemorandumOfAssociation,
	domain.DocumentResolution,
	domain.DocumentUBODeclaration,
	domain.DocumentRegisterOfMembersAndDirectors,
}

// minProcessOverlap is how many distinct required documents must be present
// before a process is considered to be under way.
const minProcessOverlap = 2

// InferProcess decides which process the uploaded documents belong to.
// Only the set of distinct types matters.
func InferProcess(types []domain.DocumentType) domain.Process {
	present := typeSet(types)
	overlap := 0
	for _, required := range incorporationRequired {
		if _, ok := present[required]; ok {
			overlap++
		}
	}
	if overlap >= minProcessOverlap {
		return domain.ProcessCompanyIncorporation
	}
	return domain.ProcessUnknown
}

// RequiredFor returns a fresh copy of the checklist for process.
func RequiredFor(process domain.Process) []domain.DocumentType {
	if process != domain.ProcessCompanyIncorporation {
		return []domain.DocumentType{}
	}
	out := make([]domain.DocumentType, len(incorporationRequired))
	copy(out, incorporationRequired)
	return out
}

// MissingDocuments filters required down to the types absent from uploaded,
// keeping the order of required.
func MissingDocuments(required, uploaded []domain.DocumentType) []domain.DocumentType {
	present := typeSet(uploaded)
	missing := make([]domain.DocumentType, 0, len(required))
	for _, r := range required {
		if _, ok := present[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

func typeSet(types []domain.DocumentType) map[domain.DocumentType]struct{} {
	out := make(map[domain.DocumentType]struct{}, len(types))
	for _, t := range types {
		out[t] = struct{}{}
	}
	return out
}
