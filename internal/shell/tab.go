package shell

import "github.com/google/uuid"

// TabID is the stable identifier assigned to a tab at creation.
type TabID string

// NewTabID returns a fresh random tab identifier.
func NewTabID() TabID {
	return TabID(uuid.NewString())
}

// ParseTabID validates a client-supplied identifier.
func ParseTabID(s string) (TabID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", newError(CodeValidation, "invalid tab id", err)
	}
	return TabID(u.String()), nil
}

// Tab is a registry entry owning one content view.
type Tab struct {
	ID   TabID
	View View
}

// TabInfo is the snapshot of a tab pushed to the UI.
type TabInfo struct {
	ID     int    `json:"id"`
	TabID  TabID  `json:"tab_id"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}
