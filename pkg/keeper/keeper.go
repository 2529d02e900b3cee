// Package keeper indexes the access entries shipped by the services into
// Elasticsearch.
package keeper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"applog/pkg/models"
)

// Indexer stores one document under the given ID.
type Indexer interface {
	Index(ctx context.Context, index, docID string, body []byte) error
}

type Keeper struct {
	index string
	idx   Indexer
}

func New(index string, idx Indexer) *Keeper {
	return &Keeper{index: index, idx: idx}
}

// Run consumes jobs until ctx is done or jobs is closed.
func (k *Keeper) Run(ctx context.Context, jobs <-chan kafka.Message, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Infof("[logkeeper][workerID:%d] context cancelled, exiting worker", workerID)
			return

		case msg, ok := <-jobs:
			if !ok {
				log.Infof("[logkeeper][workerID:%d] jobs channel closed, exiting worker", workerID)
				return
			}
			log.Debugf("[logkeeper][workerID:%d] received message: %s", workerID, string(msg.Value))

			if err := k.Handle(ctx, msg); err != nil {
				log.Errorf("[logkeeper][workerID:%d] %v", workerID, err)
			}
		}
	}
}

// Handle decodes one access entry and indexes it.
func (k *Keeper) Handle(ctx context.Context, msg kafka.Message) error {
	var entry models.AccessEntry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		return fmt.Errorf("failed to unmarshal log entry: %w", err)
	}

	if err := k.idx.Index(ctx, k.index, entry.DocumentID(), msg.Value); err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	log.Infof("[logkeeper][%s] log entry indexed", shorten(entry.RequestID))
	return nil
}

type ESIndexer struct {
	es *elasticsearch.Client
}

func NewESIndexer(es *elasticsearch.Client) *ESIndexer {
	return &ESIndexer{es: es}
}

func (i *ESIndexer) Index(ctx context.Context, index, docID string, body []byte) error {
	res, err := i.es.Index(
		index,
		bytes.NewReader(body),
		i.es.Index.WithDocumentID(docID),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch returned %s: %s", res.Status(), b)
	}
	return nil
}

func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
