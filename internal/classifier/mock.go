package classifier

import (
	"context"

	"github.com/mnemolab/revise/internal/domain"
)

// MockClient is a configurable classification client for testing.
// Set the response fields to control what each method returns.
type MockClient struct {
	JudgmentResponse     *domain.LLMJudgment
	JudgmentError        error
	VerificationResponse *domain.VerificationResult
	VerificationError    error

	// Call tracking for assertions
	JudgeCalls  []struct{ Old, New string }
	VerifyCalls []struct {
		Old, New string
		Detected domain.ConflictType
	}
}

func NewMockClient() *MockClient {
	return &MockClient{
		JudgmentResponse: &domain.LLMJudgment{
			Relationship: domain.RelationshipUpdate,
			Confidence:   0.9,
			Reasoning:    "mock judgment",
			WhichCurrent: "new",
		},
		VerificationResponse: &domain.VerificationResult{
			ShouldSupersede: true,
			Confidence:      0.85,
			Concerns:        []string{},
			Recommendation:  "supersede",
		},
	}
}

func (m *MockClient) JudgeRelationship(ctx context.Context, oldContent, newContent string) (*domain.LLMJudgment, error) {
	m.JudgeCalls = append(m.JudgeCalls, struct{ Old, New string }{oldContent, newContent})
	if m.JudgmentError != nil {
		return nil, m.JudgmentError
	}
	return m.JudgmentResponse, nil
}

func (m *MockClient) VerifySupersession(ctx context.Context, oldContent, newContent string, detected domain.ConflictType) (*domain.VerificationResult, error) {
	m.VerifyCalls = append(m.VerifyCalls, struct {
		Old, New string
		Detected domain.ConflictType
	}{oldContent, newContent, detected})
	if m.VerificationError != nil {
		return nil, m.VerificationError
	}
	return m.VerificationResponse, nil
}
