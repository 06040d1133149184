package roster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osprey/internal/config"
	"osprey/internal/logger"
	pkgerrors "osprey/pkg/errors"
)

func newAPIProviderForTest(url, token string) *APIProvider {
	return NewAPIProvider(config.RosterAPIConfig{URL: url, AuthToken: token}, logger.NopLogger())
}

func serveRoster(t *testing.T, contacts []Contact, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(contacts))
	}))
}

func TestAPIProvider_FetchesContacts(t *testing.T) {
	var gotMethod, gotAccept string
	server := serveRoster(t, sampleRoster(), func(r *http.Request) {
		gotMethod = r.Method
		gotAccept = r.Header.Get("Accept")
	})
	defer server.Close()

	provider := newAPIProviderForTest(server.URL+"/contacts", "")

	contacts, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
	assert.Equal(t, "John Smith", contacts[0].Name)
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "application/json", gotAccept)
}

func TestAPIProvider_TemplateURLSubstitutesUserID(t *testing.T) {
	var gotPath string
	server := serveRoster(t, nil, func(r *http.Request) {
		gotPath = r.URL.Path
	})
	defer server.Close()

	provider := newAPIProviderForTest(server.URL+"/users/{user_id}/contacts", "")

	_, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.NoError(t, err)
	assert.Equal(t, "/users/"+cacheTestUserID+"/contacts", gotPath)
}

func TestAPIProvider_QueryParamFallback(t *testing.T) {
	var gotUserID string
	server := serveRoster(t, nil, func(r *http.Request) {
		gotUserID = r.URL.Query().Get("user_id")
	})
	defer server.Close()

	provider := newAPIProviderForTest(server.URL+"/contacts", "")

	_, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.NoError(t, err)
	assert.Equal(t, cacheTestUserID, gotUserID)
}

func TestAPIProvider_QueryParamAppendedToExistingQuery(t *testing.T) {
	var gotFormat, gotUserID string
	server := serveRoster(t, nil, func(r *http.Request) {
		gotFormat = r.URL.Query().Get("format")
		gotUserID = r.URL.Query().Get("user_id")
	})
	defer server.Close()

	provider := newAPIProviderForTest(server.URL+"/contacts?format=full", "")

	_, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.NoError(t, err)
	assert.Equal(t, "full", gotFormat)
	assert.Equal(t, cacheTestUserID, gotUserID)
}

func TestAPIProvider_SendsBearerToken(t *testing.T) {
	var gotAuth string
	server := serveRoster(t, nil, func(r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	})
	defer server.Close()

	provider := newAPIProviderForTest(server.URL+"/contacts", "token123")

	_, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token123", gotAuth)
}

func TestAPIProvider_NoTokenNoAuthHeader(t *testing.T) {
	gotAuth := "unset"
	server := serveRoster(t, nil, func(r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	})
	defer server.Close()

	provider := newAPIProviderForTest(server.URL+"/contacts", "")

	_, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestAPIProvider_Non2xxIsServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := newAPIProviderForTest(server.URL+"/contacts", "")

	_, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrServiceUnavailable))
}

func TestAPIProvider_MalformedBodyIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	provider := newAPIProviderForTest(server.URL+"/contacts", "")

	_, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.Error(t, err)
	assert.False(t, pkgerrors.Is(err, pkgerrors.ErrServiceUnavailable))
}

func TestAPIProvider_ConnectionRefusedIsServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider := newAPIProviderForTest(url+"/contacts", "")

	_, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrServiceUnavailable))
}
