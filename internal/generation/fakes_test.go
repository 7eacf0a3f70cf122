package generation

import (
	"context"
	"sync"
)

type stubLLM struct {
	mu        sync.Mutex
	responses []LLMResponse
	errs      []error
	requests  []LLMRequest
	block     bool
}

func (s *stubLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	block := s.block
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return LLMResponse{}, ctx.Err()
	}
	var (
		resp LLMResponse
		err  error
	)
	if i < len(s.responses) {
		resp = s.responses[i]
	} else if len(s.responses) > 0 {
		resp = s.responses[len(s.responses)-1]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return resp, err
}

func (s *stubLLM) Requests() []LLMRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LLMRequest(nil), s.requests...)
}
