package entity

// TestStep is one numbered entry of a test script.
type TestStep struct {
	ID             string
	Given          string
	Action         string
	ExpectedResult string
	Raw            string
}

type Snapshot struct {
	URL      string
	Title    string
	BodyHTML string
}

// DomElement is one candidate element of the DOM inventory.
type DomElement struct {
	Tag           string   `json:"tag"`
	ID            string   `json:"id,omitempty"`
	Role          string   `json:"role,omitempty"`
	TestID        string   `json:"testid,omitempty"`
	Placeholder   string   `json:"placeholder,omitempty"`
	Label         string   `json:"label,omitempty"`
	Text          string   `json:"text"`
	CSSCandidates []string `json:"cssCandidates"`
}
