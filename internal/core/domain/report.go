package domain

import "time"

type DocumentFindings struct {
	Document string       `json:"document"`
	Type     DocumentType `json:"type"`
	Issues   []Issue      `json:"issues"`
}

type Report struct {
	Process           Process            `json:"process"`
	DocumentsUploaded int                `json:"documents_uploaded"`
	RequiredDocuments int                `json:"required_documents"`
	MissingDocuments  []DocumentType     `json:"missing_documents"`
	IssuesFound       []DocumentFindings `json:"issues_found"`
}

// ReviewRun is one analysis run over a batch of uploaded documents.
type ReviewRun struct {
	ID             string           `json:"id"`
	Report         Report           `json:"report"`
	Documents      []DocumentEntry  `json:"documents"`
	SeverityCounts map[Severity]int `json:"severity_counts"`
	Provider       string           `json:"provider,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
