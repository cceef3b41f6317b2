package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

const metadataCheckTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery summary table is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client exports archived commission summaries to one BigQuery table.
type Client struct {
	client    *bigquery.Client
	dataset   *bigquery.Dataset
	summaries *bigquery.Table
	logg      *logger.Logger
}

// NewClient connects to BigQuery and makes sure the summary table exists,
// creating it from SummaryRow when the dataset has no such table yet.
// Callers should only build one when cfg.Enabled() reports true.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tableID := summaryTableName(cfg)
	if tableID == "" {
		return nil, errTableNameRequired
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	dataset := bqClient.Dataset(datasetID)
	client := &Client{
		client:    bqClient,
		dataset:   dataset,
		summaries: dataset.Table(tableID),
		logg:      logg,
	}

	if err := client.ensureSummaryTable(ctx); err != nil {
		_ = bqClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"dataset": datasetID,
			"table":   tableID,
		}), "bigquery summary export ready")
	}
	return client, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func summaryTableName(cfg config.BigQueryConfig) string {
	return strings.TrimSpace(cfg.SummaryTable)
}

// summarySchema is the table layout inferred from SummaryRow.
func summarySchema() (bigquery.Schema, error) {
	return bigquery.InferSchema(SummaryRow{})
}

func (c *Client) ensureSummaryTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}

	_, err := c.summaries.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("checking table %q: %w", c.summaries.TableID, err)
	}

	schema, err := summarySchema()
	if err != nil {
		return fmt.Errorf("inferring summary schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema:      schema,
		Description: "Archived monthly commission summaries",
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.MonthPartitioningType,
			Field: "archived_at",
		},
	}
	if err := c.summaries.Create(ctx, meta); err != nil {
		return fmt.Errorf("creating table %q: %w", c.summaries.TableID, err)
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "table", c.summaries.TableID), "created bigquery summary table")
	}
	return nil
}

// Ping verifies the dataset and summary table are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.summaries == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()
	_, err := c.summaries.Metadata(ctx)
	return err
}

// Close releases the BigQuery client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
