package domain

// ValidationReport is the per-document verdict of structural validation.
// Reasons are hard failures; warnings never block usability.
type ValidationReport struct {
	Source   string   `json:"source"`
	Usable   bool     `json:"usable"`
	Reasons  []string `json:"reasons"`
	Warnings []string `json:"warnings"`
}

// RejectedDoc names a document that failed validation and why.
type RejectedDoc struct {
	Source  string   `json:"source"`
	Reasons []string `json:"reasons"`
}

// ValidationSummary aggregates reports over a document batch.
type ValidationSummary struct {
	TotalDocs   int           `json:"total_docs"`
	UsableDocs  int           `json:"usable_docs"`
	RejectedDocs int          `json:"rejected_docs"`
	WarningDocs int           `json:"warning_docs"`
	UsableRatio float64       `json:"usable_ratio"`
	SummaryText string        `json:"summary_text"`
	Rejected    []RejectedDoc `json:"rejected"`
}
