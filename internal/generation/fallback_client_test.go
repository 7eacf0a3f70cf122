package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackClient(t *testing.T) {
	req := LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}}

	t.Run("primary succeeds", func(t *testing.T) {
		primary := &stubLLM{responses: []LLMResponse{{Text: "primary"}}}
		secondary := &stubLLM{responses: []LLMResponse{{Text: "secondary"}}}

		resp, err := NewFallbackClient(primary, secondary, nil).Complete(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "primary", resp.Text)
		assert.Empty(t, secondary.Requests())
	})

	t.Run("primary fails", func(t *testing.T) {
		primary := &stubLLM{errs: []error{errors.New("down")}}
		secondary := &stubLLM{responses: []LLMResponse{{Text: "secondary"}}}

		resp, err := NewFallbackClient(primary, secondary, nil).Complete(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "secondary", resp.Text)
		assert.Equal(t, req, secondary.Requests()[0])
	})

	t.Run("both fail", func(t *testing.T) {
		primary := &stubLLM{errs: []error{errors.New("down")}}
		secondary := &stubLLM{errs: []error{errors.New("also down")}}

		_, err := NewFallbackClient(primary, secondary, nil).Complete(context.Background(), req)
		assert.EqualError(t, err, "also down")
	})

	t.Run("no fallback", func(t *testing.T) {
		primary := &stubLLM{errs: []error{errors.New("down")}}

		_, err := NewFallbackClient(primary, nil, nil).Complete(context.Background(), req)
		assert.EqualError(t, err, "down")
	})
}
