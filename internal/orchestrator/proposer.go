package orchestrator

import "context"

// ProposalRequest is the payload sent to the patch-proposal collaborator:
// the failures reported by the fix step and the files it implicates.
type ProposalRequest struct {
	Failures []Failure `json:"failures"`
	Files    []string  `json:"files"`
}

// PatchEntry is one proposed unified-diff document.
type PatchEntry struct {
	Diff string `json:"diff"`
}

// PatchPlan is the collaborator's proposed fix for one attempt. An empty
// patch list means "no fix available".
type PatchPlan struct {
	Patches []PatchEntry `json:"patches"`
}

// Proposer is the external patch-proposal collaborator consulted by the
// fix loop. Implementations typically wrap an AI-provider call; the
// engine only cares about the PatchPlan shape.
type Proposer interface {
	Propose(ctx context.Context, req ProposalRequest) (*PatchPlan, error)
}
