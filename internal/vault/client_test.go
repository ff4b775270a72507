package vault_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keelworks/vaultward/internal/vault"
	_ "github.com/keelworks/vaultward/testing"
)

type staticTokens struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (s *staticTokens) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *staticTokens) Invalidate() {
	s.mu.Lock()
	s.invalidated++
	s.mu.Unlock()
}

func newClient(srvURL string) (*vault.Client, *staticTokens) {
	tokens := &staticTokens{token: "tok-1"}
	return vault.NewClient(srvURL, "org-1", tokens, nil), tokens
}

func TestInviteSendsGrants(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/organizations/org-1/users/invite", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	client, _ := newClient(srv.URL)

	grants := []vault.CollectionGrant{{ID: "col-1"}, {ID: "base-1"}}
	require.NoError(t, client.Invite(context.Background(), "ada@example.com", grants))

	require.Equal(t, []any{"ada@example.com"}, captured["emails"])
	require.Equal(t, float64(2), captured["type"])
	require.Len(t, captured["collections"], 2)
}

func TestInviteAlreadyInvitedMapsToAlreadyExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"This user has already been invited."}`))
	}))
	defer srv.Close()
	client, _ := newClient(srv.URL)

	err := client.Invite(context.Background(), "ada@example.com", nil)
	require.ErrorIs(t, err, vault.ErrAlreadyExists)
}

func TestInviteConflictMapsToAlreadyExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()
	client, _ := newClient(srv.URL)

	err := client.Invite(context.Background(), "ada@example.com", nil)
	require.ErrorIs(t, err, vault.ErrAlreadyExists)
}

func TestInviteGenericBadRequestIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Seats exceeded."}`))
	}))
	defer srv.Close()
	client, _ := newClient(srv.URL)

	err := client.Invite(context.Background(), "ada@example.com", nil)
	var apiErr *vault.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Contains(t, apiErr.Body, "Seats exceeded")
}

func TestUnauthorizedRetriedOnceWithFreshToken(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	client, tokens := newClient(srv.URL)

	require.NoError(t, client.Reinvite(context.Background(), "member-1"))
	require.Equal(t, 2, hits)
	require.Equal(t, 1, tokens.invalidated)
}

func TestSecondUnauthorizedIsAuthenticationError(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	client, tokens := newClient(srv.URL)

	err := client.Reinvite(context.Background(), "member-1")
	require.ErrorIs(t, err, vault.ErrAuthentication)
	require.Equal(t, 2, hits)
	require.Equal(t, 1, tokens.invalidated)
}

func TestListDrainsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.URL.Query().Get("includeCollections"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("continuationToken") == "" {
			_, _ = w.Write([]byte(`{"data":[{"id":"m-1","email":"ada@example.com","status":2}],"continuationToken":"page-2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"m-2","email":"grace@example.com","status":0}],"continuationToken":""}`))
	}))
	defer srv.Close()
	client, _ := newClient(srv.URL)

	members, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, "m-2", members[1].ID)
	require.Equal(t, vault.StatusInvited, members[1].Status)
}

func TestFindByEmailCaseInsensitive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"m-1","email":"Ada@Example.com","status":1}],"continuationToken":""}`))
	}))
	defer srv.Close()
	client, _ := newClient(srv.URL)

	member, err := client.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, member)
	require.Equal(t, "m-1", member.ID)

	missing, err := client.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestConfirmRequiresPublicKey(t *testing.T) {
	confirmHits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/user-1/public-key":
			w.WriteHeader(http.StatusNotFound)
		default:
			confirmHits++
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()
	client, _ := newClient(srv.URL)

	err := client.Confirm(context.Background(), "member-1", "user-1")
	require.ErrorIs(t, err, vault.ErrKeyNotReady)
	require.Equal(t, 0, confirmHits)
}

func TestConfirmPostsKey(t *testing.T) {
	var confirmBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/user-1/public-key":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"userId":"user-1","publicKey":"pk-material"}`))
		case "/organizations/org-1/users/member-1/confirm":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&confirmBody))
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	client, _ := newClient(srv.URL)

	require.NoError(t, client.Confirm(context.Background(), "member-1", "user-1"))
	require.Equal(t, "user-1", confirmBody["key"])
}

func TestDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/organizations/org-1/users/member-1/delete", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	client, _ := newClient(srv.URL)

	require.NoError(t, client.Delete(context.Background(), "member-1"))
}
