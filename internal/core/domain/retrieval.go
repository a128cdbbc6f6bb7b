package domain

// ReferenceHit is one ranked snippet returned by the reference retriever.
type ReferenceHit struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// Source returns the path metadata of the hit, or "" when absent.
func (h ReferenceHit) Source() string {
	if h.Metadata == nil {
		return ""
	}
	return h.Metadata["path"]
}

// ReferenceSource is a readable reference file discovered on disk.
type ReferenceSource struct {
	Path string
	Text string
}

// ProposalRequest is sent to a language model provider to obtain candidate
// issues for one document.
type ProposalRequest struct {
	DocumentText string
	Grounding    []Citation
	Model        string
	Temperature  float64
}
