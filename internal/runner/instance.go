package runner

import (
	"fmt"

	"github.com/memcomp/harness/internal/catalog"
)

// Instance is one benchmark task bound to a project-local ident (the
// "pPPiII" label used as the proxy key alias and output directory name).
type Instance struct {
	InstanceID string
	Ident      string
	Row        catalog.Row
	Image      string
}

// NewInstance resolves instanceID against the catalog and derives its
// sandbox image reference.
func NewInstance(cat *catalog.Catalog, instanceID, ident, imageBase string) (Instance, error) {
	row, ok := cat.Lookup(instanceID)
	if !ok {
		return Instance{}, fmt.Errorf("unknown instance id %q", instanceID)
	}
	return Instance{
		InstanceID: instanceID,
		Ident:      ident,
		Row:        row,
		Image:      catalog.ImageReference(imageBase, row),
	}, nil
}

// HydrateProject turns a project's flat instance id list into idented
// Instances, using the "p<PP>i<II>" convention.
func HydrateProject(cat *catalog.Catalog, instanceIDs []string, projectIdx int, imageBase string) ([]Instance, error) {
	instances := make([]Instance, 0, len(instanceIDs))
	for i, id := range instanceIDs {
		ident := fmt.Sprintf("p%02di%02d", projectIdx, i)
		inst, err := NewInstance(cat, id, ident, imageBase)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// Candidate is one agent-under-test configuration.
type Candidate struct {
	RunName          string  `json:"run_name"`
	AgentDockerImage string  `json:"agent_docker_image"`
	LLMQuotaTotal    float64 `json:"llm_quota_total"`
	LLMQuotaInstance float64 `json:"llm_quota_instance"`
	EnableMemory     bool    `json:"enable_memory"`
	TimeoutS         float64 `json:"timeout_s"`
}
