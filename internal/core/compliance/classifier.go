// Package compliance holds the fixed review rules: document classification,
// heuristic red-flag scanning, the incorporation checklist and report
// assembly. Everything here is pure and safe to call concurrently.
package compliance

import (
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

type classificationRule struct {
	phrases []string
	docType domain.DocumentType
}

// Evaluated top to bottom; the first rule with any matching phrase wins.
var classificationRules = []classificationRule{
	{phrases: []string{"articles of association"}, docType: domain.DocumentArticlesOfAssociation},
	{phrases: []string{"memorandum of association", "memorandum"}, docType: domain.DocumentMemorandumOfAssociation},
	{phrases: []string{"resolution"}, docType: domain.DocumentResolution},
	{phrases: []string{"incorporation"}, docType: domain.DocumentIncorporationApplication},
	{phrases: []string{"beneficial owner", "ubo"}, docType: domain.DocumentUBODeclaration},
	{phrases: []string{"register of members", "register of directors"}, docType: domain.DocumentRegisterOfMembersAndDirectors},
}

// ClassifyDocument maps extracted text to a document type.
func ClassifyDocument(text string) domain.DocumentType {
	lowered := strings.ToLower(text)
	for _, rule := range classificationRules {
		if containsAny(lowered, rule.phrases) {
			return rule.docType
		}
	}
	return domain.DocumentUnknown
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
