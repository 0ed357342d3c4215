package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"example.com/backstage/services/dairy/config"
	"example.com/backstage/services/dairy/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient projects the notification log into Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return nil, errors.New("elasticsearch is disabled")
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// NotificationDocument builds the indexed document of a notification
func NotificationDocument(n *models.Notification) map[string]interface{} {
	doc := map[string]interface{}{
		"id":        n.ID,
		"owner_id":  n.OwnerID,
		"shift":     n.Shift,
		"subject":   n.Subject,
		"type":      n.Type,
		"trigger":   n.Trigger,
		"status":    n.Status,
		"date_sent": n.DateSent,
	}
	if n.Error != "" {
		doc["error"] = n.Error
	}
	return doc
}

// IndexNotification indexes a dispatch attempt
func (c *ElasticClient) IndexNotification(ctx context.Context, n *models.Notification) error {
	docJSON, err := json.Marshal(NotificationDocument(n))
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification document")
	}

	req := esapi.IndexRequest{
		Index:      config.FormatIndex(c.config, c.config.Index),
		DocumentID: strconv.FormatUint(uint64(n.ID), 10),
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Debug().Uint("notification_id", n.ID).Msg("notification indexed")
	return nil
}

// SearchNotifications runs a raw query against the notification index
func (c *ElasticClient) SearchNotifications(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{config.FormatIndex(c.config, c.config.Index)},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	docs := make([]map[string]interface{}, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

// OwnerQuery builds the query used to search one owner's notifications
func OwnerQuery(ownerID uint, shift string, size int) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"owner_id": ownerID}},
	}
	if shift != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"shift": shift}})
	}
	return map[string]interface{}{
		"size":  size,
		"sort":  []interface{}{map[string]interface{}{"date_sent": map[string]interface{}{"order": "desc"}}},
		"query": map[string]interface{}{"bool": map[string]interface{}{"filter": filters}},
	}
}
