package models

// Branch is a snapshot of one local branch. It is rebuilt from git output
// on every refresh and carries no identity across listings.
type Branch struct {
	Name         string `json:"name"`
	IsLocal      bool   `json:"isLocal"`
	ExistsRemote bool   `json:"existsRemote"`
	IsCurrent    bool   `json:"isCurrent"`
	IsMain       bool   `json:"isMain"`
}

// Deletable reports whether the branch may be offered for deletion.
// The trunk branch and the checked-out branch never are.
func (b Branch) Deletable() bool {
	return !b.IsMain && !b.IsCurrent
}

// DeletableBranches returns the branches that may be offered for deletion,
// in their original order.
func DeletableBranches(branches []Branch) []Branch {
	var out []Branch
	for _, b := range branches {
		if b.Deletable() {
			out = append(out, b)
		}
	}
	return out
}

// DeleteResult is the outcome of one forced branch deletion.
type DeleteResult struct {
	Name    string
	Command string
	Err     error
}

// OK reports whether the deletion succeeded.
func (r DeleteResult) OK() bool {
	return r.Err == nil
}
