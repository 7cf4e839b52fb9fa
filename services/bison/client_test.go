package bison

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outboundhq/senderstack/interfaces"
)

func newTestFactory(t *testing.T, baseURL string) interfaces.BisonClientFactory {
	factory, err := NewClientFactory(&Config{
		BaseURL:      baseURL,
		SharedAPIKey: "shared-key",
		Instance:     "bison.test",
		MaxRetries:   0,
	})
	require.NoError(t, err)
	return factory
}

func TestNewClientFactory_InstanceDefaultsToHost(t *testing.T) {
	factory, err := NewClientFactory(&Config{
		BaseURL:      "https://app.bison.example/extra/path",
		SharedAPIKey: "key",
	})
	require.NoError(t, err)
	require.Equal(t, "app.bison.example", factory.Instance())

	_, err = NewClientFactory(&Config{BaseURL: "https://app.bison.example"})
	require.Error(t, err)
}

func TestSwitchWorkspace_SendsTeamId(t *testing.T) {
	var gotBody map[string]int
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/workspaces/current", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestFactory(t, srv.URL).ClientForAPIKey("")
	require.NoError(t, client.SwitchWorkspace(context.Background(), 42))
	require.Equal(t, map[string]int{"team_id": 42}, gotBody)
	require.Equal(t, "Bearer shared-key", gotAuth)
}

func TestListSenderEmails_DecodesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/sender-emails", r.URL.Path)
		require.Equal(t, "25", r.URL.Query().Get("per_page"))
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "Bearer dedicated", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": 7, "email": "a@acme.com", "status": "connected", "emails_sent": 120, "unique_replied_count": 6},
			},
			"links": map[string]interface{}{"next": nil},
			"meta":  map[string]interface{}{"current_page": 2, "last_page": 2, "per_page": 25, "total": 26},
		})
	}))
	defer srv.Close()

	client := newTestFactory(t, srv.URL).ClientForAPIKey("dedicated")
	page, err := client.ListSenderEmails(context.Background(), 2, 25)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.Equal(t, int64(7), page.Data[0].ID)
	require.Equal(t, int64(120), page.Data[0].EmailsSent)
	require.Nil(t, page.Links.Next)
	require.Equal(t, 2, page.Meta.CurrentPage)
	require.Equal(t, 2, page.Meta.LastPage)
}

func TestListSenderEmails_ErrorStatusSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestFactory(t, srv.URL).ClientForAPIKey("")
	_, err := client.ListSenderEmails(context.Background(), 1, 100)
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}
