// internal/workers/job/reassign-jobs/models.go
package reassignjobs

import "drclean-workers/internal/repository"

type Input struct {
	Address  string `json:"address"`
	ClientID string `json:"clientId"`
}

type Output struct {
	ClientID   string                     `json:"clientId"`
	Reassigned []repository.ReassignedJob `json:"reassigned"`
	Count      int                        `json:"count"`
}
