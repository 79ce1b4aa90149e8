package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"real-estate-site/internal/models"
	"real-estate-site/internal/source"
)

// fakeMeili serves the document endpoints of one index from memory.
type fakeMeili struct {
	mu   sync.Mutex
	docs []models.Property
}

func (f *fakeMeili) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/indexes/properties/documents"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch {
	case r.Method == http.MethodGet && rest == "":
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit == 0 {
			limit = 20
		}
		end := offset + limit
		if end > len(f.docs) {
			end = len(f.docs)
		}
		results := []models.Property{}
		if offset < len(f.docs) {
			results = f.docs[offset:end]
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": results,
			"offset":  offset,
			"limit":   limit,
			"total":   len(f.docs),
		})
	case r.Method == http.MethodGet:
		id, _ := strconv.Atoi(rest)
		for _, d := range f.docs {
			if d.ID == id {
				_ = json.NewEncoder(w).Encode(d)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Document not found.","code":"document_not_found","type":"invalid_request","link":""}`)
	case r.Method == http.MethodDelete:
		f.docs = nil
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"taskUid":1,"indexUid":"properties","status":"enqueued","type":"documentDeletion"}`)
	case r.Method == http.MethodPost:
		var docs []models.Property
		_ = json.NewDecoder(r.Body).Decode(&docs)
		f.docs = append(f.docs, docs...)
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"taskUid":2,"indexUid":"properties","status":"enqueued","type":"documentAdditionOrUpdate"}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestSearchClientAsSource(t *testing.T) {
	fake := &fakeMeili{}
	for i := 1; i <= 7; i++ {
		fake.docs = append(fake.docs, models.Property{ID: i, Title: "Listing", Location: "Rabat", Type: "apartment"})
	}
	server := httptest.NewServer(fake)
	defer server.Close()

	client := NewSearchClient(server.URL, "", "properties")

	properties, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, properties, 7)

	p, err := client.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.ID)

	_, err = client.Get(context.Background(), 42)
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestIndexPropertiesReplacesDocuments(t *testing.T) {
	fake := &fakeMeili{docs: []models.Property{{ID: 99, Title: "Stale"}}}
	server := httptest.NewServer(fake)
	defer server.Close()

	client := NewSearchClient(server.URL, "", "")
	task, err := client.IndexProperties([]models.Property{{ID: 1, Title: "Fresh"}, {ID: 2, Title: "Also fresh"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), task)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.docs, 2)
	assert.Equal(t, "Fresh", fake.docs[0].Title)
}
