// Package elasticsearch keeps a searchable projection of users.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
	requestTimeout    = 3 * time.Second
)

// UserDocument is the indexed form of a user.
type UserDocument struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserIndex struct {
	client *es.Client
	index  string
}

func NewUserIndex(client *es.Client, index string) *UserIndex {
	return &UserIndex{client: client, index: index}
}

// Index upserts doc under its id with external versioning on UpdatedAt, so a
// late or redelivered event cannot overwrite a newer document. A version
// conflict means the index already holds that state or a newer one.
func (i *UserIndex) Index(ctx context.Context, doc UserDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	version := documentVersion(doc.UpdatedAt)
	req := esapi.IndexRequest{
		Index:       i.index,
		DocumentID:  doc.ID,
		Body:        bytes.NewReader(b),
		Refresh:     "false",
		Version:     &version,
		VersionType: "external",
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := req.Do(c, i.client)
	if err != nil {
		return fmt.Errorf("could not index user %s: %w", doc.ID, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusConflict {
		return fmt.Errorf("could not index user %s: %s", doc.ID, res.Status())
	}
	return nil
}

// Delete removes the document for id. A non-zero at versions the delete the
// same way Index does, so the tombstone also rejects older index writes that
// arrive later (within the cluster's index.gc_deletes window). A missing
// document or a newer stored version is not an error.
func (i *UserIndex) Delete(ctx context.Context, id string, at time.Time) error {
	req := esapi.DeleteRequest{Index: i.index, DocumentID: id}
	if !at.IsZero() {
		version := documentVersion(at)
		req.Version = &version
		req.VersionType = "external"
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := req.Do(c, i.client)
	if err != nil {
		return fmt.Errorf("could not delete user %s from index: %w", id, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound && res.StatusCode != http.StatusConflict {
		return fmt.Errorf("could not delete user %s from index: %s", id, res.Status())
	}
	return nil
}

func documentVersion(at time.Time) int {
	return int(at.UnixMicro())
}

// Search runs a multi_match query over email and name. size is clamped to
// 1..50 with a default of 10.
func (i *UserIndex) Search(ctx context.Context, q string, size int) ([]UserDocument, error) {
	if size <= 0 || size > maxSearchSize {
		size = defaultSearchSize
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := i.client.Search(
		i.client.Search.WithContext(c),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, fmt.Errorf("could not search users: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		// index not created yet
		return []UserDocument{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("could not search users: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string       `json:"_id"`
				Source UserDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not decode search response: %w", err)
	}

	out := make([]UserDocument, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

// Ping reports whether the cluster answers.
func (i *UserIndex) Ping(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := i.client.Ping(i.client.Ping.WithContext(c))
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}
