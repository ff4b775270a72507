package directory_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keelworks/vaultward/internal/directory"
	_ "github.com/keelworks/vaultward/testing"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/people", r.URL.Path)
		require.Equal(t, "ada@example.com", r.URL.Query().Get("email"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Ada","email":"ada@example.com","team":"Design","role":"Design","chatHandle":"@ada"}`))
	}))
	defer srv.Close()
	client := directory.NewClient(srv.URL)

	identity, err := client.Lookup(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, identity)
	require.Equal(t, "Ada", identity.Name)
	require.Equal(t, "Design", identity.Role)
}

func TestLookupMissIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	client := directory.NewClient(srv.URL)

	identity, err := client.Lookup(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	require.Nil(t, identity)
}

func TestLookupServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	client := directory.NewClient(srv.URL)

	_, err := client.Lookup(context.Background(), "ada@example.com")
	require.Error(t, err)
}
