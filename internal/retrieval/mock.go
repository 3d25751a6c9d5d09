package retrieval

import "context"

// MockSearcher returns canned results for tests and local runs without an
// index.
type MockSearcher struct {
	Results []Result
	Err     error
}

func NewMockSearcher(results ...Result) *MockSearcher {
	return &MockSearcher{Results: results}
}

func (s *MockSearcher) Search(ctx context.Context, _ string, topK int) ([]Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if topK > 0 && len(s.Results) > topK {
		return s.Results[:topK], nil
	}
	return s.Results, nil
}
