package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig(server.URL)
	config.OperatorID = "op-7"
	config.Permissions = []string{"cfs.transaction.create", "cfs.transaction.step"}
	return NewClient(config, slog.Default())
}

func TestCreateTransactionSendsHeadersAndBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "op-7", r.Header.Get("X-Operator-ID"))
		assert.Equal(t, "cfs.transaction.create,cfs.transaction.step", r.Header.Get("X-Operator-Permissions"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PL-001", body["packingListId"])
		assert.Equal(t, "destuffWarehouse", body["businessProcessFlow"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Transaction{
			TransactionID: "TXN-1",
			PackingListID: "PL-001",
			FlowName:      "destuffWarehouse",
			Status:        StatusInProgress,
			Deletable:     true,
		})
	})

	tx, err := c.CreateTransaction(context.Background(), "PL-001", "destuffWarehouse")
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", tx.TransactionID)
	assert.True(t, tx.Deletable)
}

func TestGetActiveTransactionReturnsNilOn404(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions/active", r.URL.Path)
		assert.Equal(t, "PL-001", r.URL.Query().Get("packingListId"))
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "RESOURCE_NOT_FOUND",
			"message": "transaction for packing list not found",
		})
	})

	tx, err := c.GetActiveTransaction(context.Background(), "PL-001")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestHandleStepWireFormat(t *testing.T) {
	tests := []struct {
		name string
		req  StepRequest
		want map[string]interface{}
	}{
		{
			name: "create",
			req:  CreateStep{LineID: "LINE-1"},
			want: map[string]interface{}{"step": "create", "lineId": "LINE-1"},
		},
		{
			name: "inspect",
			req:  InspectStep{PackageIDs: []string{"p1", "p2"}},
			want: map[string]interface{}{"step": "inspect", "packageIds": []interface{}{"p1", "p2"}},
		},
		{
			name: "store",
			req:  StoreStep{PackageIDs: []string{"p1"}, LocationID: "LOC-1"},
			want: map[string]interface{}{"step": "store", "packageIds": []interface{}{"p1"}, "locationId": "LOC-1"},
		},
		{
			name: "handover",
			req:  HandoverStep{PackageIDs: []string{"p1"}},
			want: map[string]interface{}{"step": "handover", "packageIds": []interface{}{"p1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/transactions/TXN-1/steps", r.URL.Path)

				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, tt.want, body)

				json.NewEncoder(w).Encode(Transaction{TransactionID: "TXN-1"})
			})

			_, err := c.HandleStep(context.Background(), "TXN-1", tt.req)
			require.NoError(t, err)
		})
	}
}

func TestStaleSelectionErrorIsRecognized(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "STALE_SELECTION",
			"message": "some selected packages are no longer eligible",
		})
	})

	_, err := c.HandleStep(context.Background(), "TXN-1", InspectStep{PackageIDs: []string{"p1"}})
	require.Error(t, err)
	assert.True(t, IsStaleSelection(err))
	assert.False(t, IsNotFound(err))

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestDeleteTransaction(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/transactions/TXN-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteTransaction(context.Background(), "TXN-1"))
}

func TestServerErrorsOpenTheCircuitBreaker(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"code": "INTERNAL_ERROR", "message": "boom"})
	})

	// Consecutive 5xx responses trip the breaker; later calls are rejected
	// without reaching the server.
	var lastErr error
	for i := 0; i < 10; i++ {
		_, lastErr = c.GetTransaction(context.Background(), "TXN-1")
		require.Error(t, lastErr)
	}
	assert.NotErrorIs(t, lastErr, context.Canceled)

	_, err := c.GetTransaction(context.Background(), "TXN-1")
	require.Error(t, err)
}

func TestBusinessRejectionsDoNotTripTheBreaker(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"code": "CONFLICT", "message": "already in progress"})
	})

	for i := 0; i < 20; i++ {
		_, err := c.CreateTransaction(context.Background(), "PL-001", "destuffWarehouse")
		require.Error(t, err)
	}
	assert.Equal(t, 20, calls, "4xx responses pass through the circuit breaker")
}

func TestGetFlow(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/flows/destuffWarehouse", r.URL.Path)
		json.NewEncoder(w).Encode(Flow{
			Name: "destuffWarehouse",
			Steps: []FlowStep{
				{Code: "create", FromStatus: "UNKNOWN", ToStatus: "CHECK_IN", Builtin: true},
			},
		})
	})

	flow, err := c.GetFlow(context.Background(), "destuffWarehouse")
	require.NoError(t, err)
	require.Len(t, flow.Steps, 1)
	assert.Equal(t, "create", flow.Steps[0].Code)
}
