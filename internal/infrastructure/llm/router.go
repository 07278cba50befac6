package llm

import (
	"log"

	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
)

// Router determines the appropriate LLMClient based on the task's cognitive
// requirements: cheap classification goes local, recommendation generation
// goes to the cloud provider.
type Router struct {
	localClient repository.LLMClient
	cloudClient repository.LLMClient
}

// NewRouter initializes the LLM router with the specified backend clients.
func NewRouter(local, cloud repository.LLMClient) *Router {
	return &Router{
		localClient: local,
		cloudClient: cloud,
	}
}

// RouteLLMTask evaluates the cognitive load required and routes to the
// matching backend.
func (r *Router) RouteLLMTask(task repository.TaskType) repository.LLMClient {
	var selected repository.LLMClient

	switch task {
	case repository.TaskRecommendation:
		selected = r.cloudClient
	case repository.TaskIntentClassification:
		selected = r.localClient
	default:
		selected = r.localClient
	}

	if selected == nil {
		selected = r.localClient
	}

	log.Printf("[Router] Routing task '%s' to %s", task, selected.Name())
	return selected
}
