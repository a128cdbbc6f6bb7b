package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

func TestInferProcess(t *testing.T) {
	tests := []struct {
		name  string
		types []domain.DocumentType
		want  domain.Process
	}{
		{name: "two required types", types: []domain.DocumentType{domain.DocumentArticlesOfAssociation, domain.DocumentResolution}, want: domain.ProcessCompanyIncorporation},
		{name: "single required type", types: []domain.DocumentType{domain.DocumentArticlesOfAssociation}, want: domain.ProcessUnknown},
		{name: "duplicates count once", types: []domain.DocumentType{domain.DocumentArticlesOfAssociation, domain.DocumentArticlesOfAssociation}, want: domain.ProcessUnknown},
		{name: "application is not on the checklist", types: []domain.DocumentType{domain.DocumentIncorporationApplication, domain.DocumentResolution}, want: domain.ProcessUnknown},
		{name: "unknown only", types: []domain.DocumentType{domain.DocumentUnknown, domain.DocumentUnknown}, want: domain.ProcessUnknown},
		{name: "empty", types: nil, want: domain.ProcessUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferProcess(tt.types))
		})
	}
}

func TestInferProcessDependsOnlyOnDistinctTypes(t *testing.T) {
	a := []domain.DocumentType{domain.DocumentUBODeclaration, domain.DocumentResolution}
	b := []domain.DocumentType{domain.DocumentResolution, domain.DocumentUBODeclaration, domain.DocumentResolution, domain.DocumentUBODeclaration}
	assert.Equal(t, InferProcess(a), InferProcess(b))
}

func TestRequiredFor(t *testing.T) {
	assert.Equal(t, []domain.DocumentType{
		domain.DocumentArticlesOfAssociation,
		domain.DocumentMemorandumOfAssociation,
		domain.DocumentResolution,
		domain.DocumentUBODeclaration,
		domain.DocumentRegisterOfMembersAndDirectors,
	}, RequiredFor(domain.ProcessCompanyIncorporation))
	assert.Empty(t, RequiredFor(domain.ProcessUnknown))

	required := RequiredFor(domain.ProcessCompanyIncorporation)
	required[0] = domain.DocumentUnknown
	assert.Equal(t, domain.DocumentArticlesOfAssociation, RequiredFor(domain.ProcessCompanyIncorporation)[0])
}

func TestMissingDocumentsKeepsChecklistOrder(t *testing.T) {
	missing := MissingDocuments(
		RequiredFor(domain.ProcessCompanyIncorporation),
		[]domain.DocumentType{domain.DocumentMemorandumOfAssociation, domain.DocumentArticlesOfAssociation},
	)
	assert.Equal(t, []domain.DocumentType{
		domain.DocumentResolution,
		domain.DocumentUBODeclaration,
		domain.DocumentRegisterOfMembersAndDirectors,
	}, missing)
}
