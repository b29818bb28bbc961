package attio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)
	return server, client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestListObjectsCachesRegistry(t *testing.T) {
	calls := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/objects", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		calls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"id":            map[string]string{"object_id": "obj-1"},
					"api_slug":      "companies",
					"singular_noun": "Company",
					"plural_noun":   "Companies",
				},
				{
					"id":            map[string]string{"object_id": "obj-2"},
					"api_slug":      "funds",
					"singular_noun": "Fund",
					"plural_noun":   "Funds",
				},
			},
		})
	})

	ctx := context.Background()
	objects, err := client.ListObjects(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "funds", objects[1].APISlug)

	_, err = client.ListObjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second ListObjects should hit the cache")

	assert.Equal(t, []string{"companies", "funds"}, client.CustomObjectSlugs())

	require.NoError(t, client.RefreshObjects(ctx))
	assert.Equal(t, 2, calls)
}

func TestGetAttributes(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/objects/deals/attributes", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"api_slug": "name", "title": "Name", "type": "text", "is_writable": true},
				{"api_slug": "stage", "title": "Stage", "type": "status", "is_writable": true},
				{"api_slug": "tags", "title": "Tags", "type": "select", "is_multiselect": true, "is_writable": true},
			},
		})
	})

	attrs, err := client.GetAttributes(context.Background(), "deals")
	require.NoError(t, err)
	require.Len(t, attrs, 3)
	assert.Equal(t, "status", attrs[1].Type)
	assert.True(t, attrs[2].IsArray)
}

func TestGetStatusOptionsFallsBackToSelectOptions(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/objects/companies/attributes/categories/statuses":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "not_found", "message": "no statuses"})
		case "/objects/companies/attributes/categories/options":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"id": map[string]string{"option_id": "opt-1"}, "title": "SaaS"},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	options, err := client.GetStatusOptions(context.Background(), "companies", "categories")
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "opt-1", options[0].ID)
	assert.Equal(t, "SaaS", options[0].Title)
}

func TestQueryRecordsSendsCompiledFilter(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/objects/companies/records/query", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(10), body["limit"])
		filter, ok := body["filter"].(map[string]interface{})
		require.True(t, ok, "filter missing from query body")
		assert.Contains(t, filter, "name")

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": map[string]interface{}{"record_id": "rec-1"}, "values": map[string]interface{}{}},
			},
		})
	})

	records, err := client.QueryRecords(context.Background(), "companies",
		map[string]interface{}{"name": map[string]interface{}{"$contains": "Acme"}}, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].StringID())
}

func TestQueryRecordsTasksRejectFilters(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent")
	})

	_, err := client.QueryRecords(context.Background(), "tasks",
		map[string]interface{}{"content": map[string]interface{}{"$contains": "x"}}, 10, 0)
	assert.Error(t, err)
}

func TestCreateRecordEnvelope(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/objects/people/records", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		values, ok := body["data"]["values"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Jan", values["name"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"id":     map[string]interface{}{"record_id": "rec-9"},
				"values": values,
			},
		})
	})

	record, err := client.CreateRecord(context.Background(), "people", map[string]interface{}{"name": "Jan"})
	require.NoError(t, err)
	assert.Equal(t, "rec-9", record.StringID())
}

func TestRecordStringID(t *testing.T) {
	assert.Equal(t, "rec-1", (&Record{ID: map[string]interface{}{"record_id": "rec-1"}}).StringID())
	assert.Equal(t, "task-1", (&Record{ID: map[string]interface{}{"task_id": "task-1"}}).StringID())
	assert.Equal(t, "list-1", (&Record{ID: map[string]interface{}{"list_id": "list-1"}}).StringID())
	assert.Equal(t, "", (&Record{}).StringID())

	var missing *Record
	assert.Equal(t, "", missing.StringID())
}

func TestUpdateRecordModeSelectsMethod(t *testing.T) {
	var gotMethod string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"id": map[string]interface{}{"record_id": "rec-1"}},
		})
	})

	ctx := context.Background()
	_, err := client.UpdateRecord(ctx, "companies", "rec-1", map[string]interface{}{"name": "Acme"}, UpdateOverwrite)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)

	_, err = client.UpdateRecord(ctx, "companies", "rec-1", map[string]interface{}{"name": "Acme"}, UpdateAppend)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
}

func TestAPIErrorDecoding(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "unauthorized",
			"message": "invalid API key",
		})
	})

	err := client.TestConnection(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Code)
	assert.Contains(t, apiErr.Message, "invalid API key")
}

func TestDeleteRecord(t *testing.T) {
	deleted := false
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/objects/companies/records/rec-1", r.URL.Path)
		deleted = true
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data": null}`))
	})

	require.NoError(t, client.DeleteRecord(context.Background(), "companies", "rec-1"))
	assert.True(t, deleted)
}
