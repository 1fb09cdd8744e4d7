package core

import (
	"context"

	"github.com/agenthands/weaver/internal/driver/drivertest"
)

type MockDriver struct {
	*drivertest.Store
	AppliedStatements []string
	Closed            bool
	Err               error
}

func NewMockDriver() *MockDriver {
	return &MockDriver{Store: drivertest.New()}
}

func (m *MockDriver) ApplySchema(ctx context.Context, statements []string) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.AppliedStatements = append(m.AppliedStatements, statements...)
	return len(statements), nil
}

func (m *MockDriver) VerifyConnectivity(ctx context.Context) error {
	return m.Err
}

func (m *MockDriver) Close(ctx context.Context) error {
	m.Closed = true
	return nil
}

type MockEmbedder struct {
	Vec   []float32
	Texts []string
}

func (m *MockEmbedder) Vector(ctx context.Context, text string) []float32 {
	m.Texts = append(m.Texts, text)
	return m.Vec
}

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}
