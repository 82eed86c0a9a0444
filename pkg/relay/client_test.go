package relay_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ThroughLocalRelay(t *testing.T) {
	up := &upstream{status: http.StatusOK, body: okBody}
	h := relay.NewHandler(relay.WithUpstreamURL(up.server(t).URL))

	ctx := context.Background()
	local, err := relay.Listen(ctx, h)
	require.NoError(t, err)
	defer local.Close()

	client := relay.NewClient(local.URL, nil)
	got, err := client.Complete(ctx, "Hello", domain.LLMConfig{APIKey: "sk", Model: "m", Temperature: "0.3"})
	require.NoError(t, err)
	assert.Equal(t, "Hi", got)
	assert.Equal(t, "Bearer sk", up.gotAuth)

	assert.NoError(t, local.Close())
	assert.NoError(t, local.Close(), "second Close is a no-op")
}

func TestClient_EmptyChoices(t *testing.T) {
	up := &upstream{status: http.StatusOK, body: `{"choices":[]}`}
	local, err := relay.Listen(context.Background(), relay.NewHandler(relay.WithUpstreamURL(up.server(t).URL)))
	require.NoError(t, err)
	defer local.Close()

	got, err := relay.NewClient(local.URL, nil).Complete(context.Background(), "Hello", domain.LLMConfig{})
	require.NoError(t, err)
	assert.Equal(t, relay.NoResponseContent, got)
}

func TestClient_StatusError(t *testing.T) {
	up := &upstream{status: http.StatusUnauthorized, body: `{"error":{"message":"invalid api key"}}`}
	local, err := relay.Listen(context.Background(), relay.NewHandler(relay.WithUpstreamURL(up.server(t).URL)))
	require.NoError(t, err)
	defer local.Close()

	_, err = relay.NewClient(local.URL, nil).Complete(context.Background(), "Hello", domain.LLMConfig{})
	var se *relay.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Contains(t, se.Error(), "invalid api key")
}
