package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
)

// UserDoc is the indexed projection of an account. No credential material
// ever goes into the index.
type UserDoc struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

type UserIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{ES: es, Index: index}
}

func (i *UserIndex) UpsertUser(ctx context.Context, doc UserDoc) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := i.ES.Index(
		i.Index,
		bytes.NewReader(body),
		i.ES.Index.WithContext(ctx),
		i.ES.Index.WithDocumentID(doc.ID),
		i.ES.Index.WithRefresh("false"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index upsert failed: %s", res.Status())
	}
	return nil
}

func (i *UserIndex) DeleteUser(ctx context.Context, id string) error {
	res, err := i.ES.Delete(
		i.Index,
		id,
		i.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("index delete failed: %s", res.Status())
	}
	return nil
}

func (i *UserIndex) BulkUpsert(ctx context.Context, docs []UserDoc) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		meta := map[string]any{"index": map[string]any{"_index": i.Index, "_id": doc.ID}}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return err
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return err
		}
	}

	res, err := i.ES.Bulk(
		&buf,
		i.ES.Bulk.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk upsert failed: %s", res.Status())
	}
	return nil
}

// Search runs a fuzzy multi_match over name, surname and email.
func (i *UserIndex) Search(ctx context.Context, query string, from, size int) (int64, []UserDoc, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "surname", "email"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := i.ES.Search(
		i.ES.Search.WithContext(ctx),
		i.ES.Search.WithIndex(i.Index),
		i.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source UserDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	docs := make([]UserDoc, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		docs[n] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}
