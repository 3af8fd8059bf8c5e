package polymarket_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSubgraphPositions_Paginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/subgraph", r.URL.Path)

		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Query, "userBalances")
		assert.Equal(t, "0xabc", body.Variables["userAddress"])

		skip := int(body.Variables["skip"].(float64))
		n := 0
		if skip == 0 {
			n = 1000
		} else if skip == 1000 {
			n = 2
		}
		items := make([]string, n)
		for i := range items {
			items[i] = fmt.Sprintf(`{"id":"p%d","user":"0xabc","balance":"%d","asset":{"id":"t%d","outcomeIndex":1,"condition":{"id":"c%d"}}}`,
				skip+i, i%2, skip+i, (skip+i)%3)
		}
		writeJSON(w, `{"data":{"userBalances":[`+strings.Join(items, ",")+`]}}`)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	positions, err := client.FetchSubgraphPositions(context.Background(), "0xABC", false)
	require.NoError(t, err)
	require.Len(t, positions, 1002)

	first := positions[0]
	assert.Equal(t, "t0", first.TokenID)
	assert.Equal(t, "c0", first.ConditionID)
	assert.Equal(t, "1", first.OutcomeIndex)
	assert.True(t, first.Closed())

	assert.Equal(t, []string{"c0", "c1", "c2"}, domain.ConditionIDs(positions))
}

func TestFetchSubgraphPositions_GraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"errors":[{"message":"bad query"}]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	_, err := client.FetchSubgraphPositions(context.Background(), "0xabc", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad query")
}
