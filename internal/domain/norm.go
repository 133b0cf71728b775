package domain

// Norm is one regulatory standard/directive entry. Norms are loaded from
// partitioned database files at startup and never mutated afterwards.
type Norm struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	AppliesTo      string `json:"applies_to"`
	Description    string `json:"description"`
	SourceDatabase string `json:"source_database"`
}
