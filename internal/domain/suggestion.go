package domain

// RootCause is one hypothesized cause with its supporting evidence refs.
type RootCause struct {
	Cause        string   `json:"cause"`
	Confidence   float64  `json:"confidence"`
	EvidenceRefs []string `json:"evidence_refs"`
}

// RecommendedStep is one remediation step with its supporting evidence refs.
type RecommendedStep struct {
	Step         string   `json:"step"`
	Rationale    string   `json:"rationale"`
	EvidenceRefs []string `json:"evidence_refs"`
}

// Suggestion is the structured triage output for a ticket. Every root cause
// and recommended step must cite at least one evidence ref from the call
// that produced it; claims without support belong in Questions instead.
type Suggestion struct {
	Summary            string            `json:"summary"`
	ConfidenceOverall  float64           `json:"confidence_overall"`
	RootCauses         []RootCause       `json:"root_causes"`
	RecommendedSteps   []RecommendedStep `json:"recommended_steps"`
	ValidationSteps    []string          `json:"validation_steps"`
	RollbackProcedures []string          `json:"rollback_procedures"`
	Questions          []string          `json:"questions"`
}

// SOPDraft is a generated standard-operating-procedure draft grounded in
// retrieved evidence. References lists the evidence ref tokens actually used.
type SOPDraft struct {
	ProblemDescription string   `json:"problem_description"`
	Symptoms           []string `json:"symptoms"`
	RootCause          string   `json:"root_cause"`
	ResolutionSteps    []string `json:"resolution_steps"`
	ValidationSteps    []string `json:"validation_steps"`
	RollbackProcedures []string `json:"rollback_procedures"`
	References         []string `json:"references"`
}
