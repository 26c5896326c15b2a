package classifier

import (
	"fmt"

	"github.com/mnemolab/revise/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewClient creates a classification service client based on the provider
// name. Returns an error if the provider is unknown or the API key is
// empty (except for mock).
func NewClient(provider, apiKey string) (domain.ClassifierClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("openai classifier requires an API key")
		}
		return NewOpenAIClient(apiKey), nil
	case ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", provider)
	}
}
