// Package bigquery persists analysis runs and confirmed recurring payments.
// Persistence is a sink: the pipeline never reads from BigQuery to produce a
// result, so a missing client simply disables the writes.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const (
	analysisRunsTable = "analysis_runs"
	paymentsTable     = "recurring_payments"
)

// Store wraps a BigQuery client bound to one project and dataset.
type Store struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewStore opens a client for the given project and dataset.
func NewStore(ctx context.Context, project, dataset string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bigquery: creating client: %w", err)
	}
	return &Store{client: client, project: project, dataset: dataset}, nil
}

// NewStoreWithClient wraps an existing client. Tests and callers that manage
// their own client lifetime use this.
func NewStoreWithClient(client *bigquery.Client, project, dataset string) *Store {
	return &Store{client: client, project: project, dataset: dataset}
}

func (s *Store) table(name string) *bigquery.Table {
	return s.client.DatasetInProject(s.project, s.dataset).Table(name)
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
