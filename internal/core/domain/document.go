package domain

type DocumentType string

const (
	DocumentArticlesOfAssociation         DocumentType = "Articles of Association"
	DocumentMemorandumOfAssociation       DocumentType = "Memorandum of Association"
	DocumentResolution                    DocumentType = "Resolution"
	DocumentIncorporationApplication      DocumentType = "Incorporation Application"
	DocumentUBODeclaration                DocumentType = "UBO Declaration"
	DocumentRegisterOfMembersAndDirectors DocumentType = "Register of Members and Directors"
	DocumentUnknown                       DocumentType = "Unknown"
)

// UploadedDocument is the raw input of a review run.
type UploadedDocument struct {
	Name    string
	Content []byte
}

// DocumentEntry is one reviewed document. Content is the uploaded bytes and is
// never modified; annotated copies are produced from it.
type DocumentEntry struct {
	Name     string       `json:"name"`
	Content  []byte       `json:"-"`
	Type     DocumentType `json:"type"`
	Issues   []Issue      `json:"issues"`
	Warnings []string     `json:"warnings,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Types returns the document type of every entry in upload order.
func Types(entries []DocumentEntry) []DocumentType {
	out := make([]DocumentType, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Type)
	}
	return out
}
