package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/meilisearch/meilisearch-go"

	"real-estate-site/internal/models"
	"real-estate-site/internal/source"
)

// documentsPageSize is how many documents List fetches per request.
const documentsPageSize = 500

// SearchClient keeps listings in a Meilisearch index. The index is a
// read model: the site lists documents from it and can rebuild it from
// the catalog, but never queries it with filters.
type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	if index == "" {
		index = "properties"
	}

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	if err != nil && !isCode(err, "index_already_exists") {
		return fmt.Errorf("failed to create index %s: %w", s.index, err)
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"title",
		"description",
		"location",
	})
	if err != nil {
		return fmt.Errorf("failed to update searchable attributes: %w", err)
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"id",
		"price",
		"created_at",
	})
	if err != nil {
		return fmt.Errorf("failed to update sortable attributes: %w", err)
	}

	return nil
}

// IndexProperties replaces every document in the index with properties.
// It returns the UID of the indexing task.
func (s *SearchClient) IndexProperties(properties []models.Property) (int64, error) {
	index := s.client.Index(s.index)
	if _, err := index.DeleteAllDocuments(); err != nil {
		return 0, fmt.Errorf("failed to clear index %s: %w", s.index, err)
	}
	if len(properties) == 0 {
		return 0, nil
	}

	task, err := index.AddDocuments(properties, "id")
	if err != nil {
		return 0, fmt.Errorf("failed to index properties: %w", err)
	}
	return task.TaskUID, nil
}

// List reads every document in the index.
func (s *SearchClient) List(ctx context.Context) ([]models.Property, error) {
	properties := []models.Property{}
	var offset int64

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var res meilisearch.DocumentsResult
		err := s.client.Index(s.index).GetDocuments(&meilisearch.DocumentsQuery{
			Offset: offset,
			Limit:  documentsPageSize,
		}, &res)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}

		page, err := decodeDocuments(res.Results)
		if err != nil {
			return nil, err
		}
		properties = append(properties, page...)

		offset += int64(len(res.Results))
		if len(res.Results) == 0 || offset >= res.Total {
			return properties, nil
		}
	}
}

// Get reads one document by listing ID.
func (s *SearchClient) Get(_ context.Context, id int) (*models.Property, error) {
	var property models.Property
	err := s.client.Index(s.index).GetDocument(strconv.Itoa(id), nil, &property)
	if err != nil {
		if isNotFound(err) {
			return nil, source.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %d: %w", id, err)
	}
	return &property, nil
}

func decodeDocuments(docs []map[string]interface{}) ([]models.Property, error) {
	raw, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode documents: %w", err)
	}
	var properties []models.Property
	if err := json.Unmarshal(raw, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return properties, nil
}

func isNotFound(err error) bool {
	var merr *meilisearch.Error
	if errors.As(err, &merr) && merr.StatusCode == http.StatusNotFound {
		return true
	}
	return isCode(err, "document_not_found")
}

func isCode(err error, code string) bool {
	var merr *meilisearch.Error
	return errors.As(err, &merr) && merr.MeilisearchApiError.Code == code
}

var _ source.Source = (*SearchClient)(nil)
