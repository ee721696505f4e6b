// internal/workers/client/delete-client/models.go
package deleteclient

type Input struct {
	ClientID string `json:"clientId"`
}

type Output struct {
	ClientID          string   `json:"clientId"`
	ClientDeleted     bool     `json:"clientDeleted"`
	SecondaryFailures []string `json:"secondaryFailures"`
	EventPublished    bool     `json:"eventPublished"`
}

// DeletedEvent is published on client.deleted.
type DeletedEvent struct {
	ClientID          string   `json:"clientId"`
	SecondaryFailures []string `json:"secondaryFailures,omitempty"`
}
