package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Elasticsearch implements Backend against an Elasticsearch 8 cluster.
type Elasticsearch struct {
	client    *elasticsearch.Client
	transport *http.Transport
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	// SkipTLSVerify disables certificate verification (dev only).
	SkipTLSVerify bool
}

func NewElasticsearch(cfg ElasticsearchConfig) (*Elasticsearch, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.SkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Elasticsearch{client: client, transport: transport}, nil
}

func (es *Elasticsearch) Ping(ctx context.Context) error {
	res, err := esapi.PingRequest{}.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

func (es *Elasticsearch) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, es.client)
	if err != nil {
		return false, fmt.Errorf("check index %q: %w", index, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError("check index", res)
	}
}

func (es *Elasticsearch) CreateIndex(ctx context.Context, index string) error {
	res, err := esapi.IndicesCreateRequest{Index: index}.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("create index %q: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

func (es *Elasticsearch) PutMapping(ctx context.Context, index string, schema []byte) (bool, error) {
	res, err := esapi.IndicesPutMappingRequest{
		Index: []string{index},
		Body:  bytes.NewReader(schema),
	}.Do(ctx, es.client)
	if err != nil {
		return false, fmt.Errorf("put mapping on %q: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, responseError("put mapping", res)
	}

	var ack struct {
		Acknowledged bool `json:"acknowledged"`
	}
	if err := json.NewDecoder(res.Body).Decode(&ack); err != nil {
		return false, fmt.Errorf("decode put mapping response: %w", err)
	}
	return ack.Acknowledged, nil
}

func (es *Elasticsearch) UpsertDocument(ctx context.Context, index, id string, payload []byte) error {
	res, err := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
	}.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("index document %q: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index document", res)
	}
	return nil
}

func (es *Elasticsearch) DeleteDocument(ctx context.Context, index, id string) (bool, error) {
	res, err := esapi.DeleteRequest{
		Index:      index,
		DocumentID: id,
	}.Do(ctx, es.client)
	if err != nil {
		return false, fmt.Errorf("delete document %q: %w", id, err)
	}
	defer res.Body.Close()

	// Elasticsearch answers 404 with result "not_found" when the document
	// never existed. That is a normal outcome, not a failure.
	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, responseError("delete document", res)
	}
	return true, nil
}

func (es *Elasticsearch) Close() error {
	es.transport.CloseIdleConnections()
	return nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s: elasticsearch returned %s: %s", op, res.Status(), string(body))
}
