package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cadbridge/internal/logger"
	tabular "cadbridge/internal/tabular/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultTableName holds one item per (sheet, row).
const DefaultTableName = "sheet_rows"

const maxAppendAttempts = 5

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type rowItem struct {
	Sheet     string   `dynamodbav:"sheet"`
	Row       int      `dynamodbav:"row"`
	Cells     []string `dynamodbav:"cells"`
	UpdatedAt string   `dynamodbav:"updated_at"`
}

type rowsStore struct {
	client    Client
	tableName string
	logger    logger.Logger
}

// NewRowsStore creates a DynamoDB backed tabular store. Table schema: partition key "sheet" (S),
// sort key "row" (N).
func NewRowsStore(client Client, tableName string, log logger.Logger) tabular.Store {
	if tableName == "" {
		tableName = DefaultTableName
	}
	return &rowsStore{
		client:    client,
		tableName: tableName,
		logger:    log.With(logger.String("component", "rows_store")),
	}
}

func (r *rowsStore) EnsureHeader(ctx context.Context, sheet string, header []string) error {
	if err := r.put(ctx, sheet, 1, header, ""); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}
	return nil
}

func (r *rowsStore) ReadColumn(ctx context.Context, sheet string, column int) ([]string, error) {
	var (
		values   []string
		startKey map[string]types.AttributeValue
	)

	for {
		result, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("#sheet = :sheet"),
			ExpressionAttributeNames: map[string]string{
				"#sheet": "sheet",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":sheet": &types.AttributeValueMemberS{Value: sheet},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			r.logger.Error("failed to query rows", logger.String("sheet", sheet), logger.Error(err))
			return nil, fmt.Errorf("failed to query rows of %s: %w", sheet, err)
		}

		for _, item := range result.Items {
			var row rowItem
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				r.logger.Warn("failed to unmarshal row", logger.Error(err))
				continue
			}
			if row.Row < 1 {
				continue
			}
			for len(values) < row.Row {
				values = append(values, "")
			}
			if column >= 0 && column < len(row.Cells) {
				values[row.Row-1] = row.Cells[column]
			}
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	return values, nil
}

func (r *rowsStore) UpdateRow(ctx context.Context, sheet string, row int, values []string) error {
	err := r.put(ctx, sheet, row, values, "attribute_exists(#row)")
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("row %d of %s: %w", row, sheet, tabular.ErrRowNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update row %d of %s: %w", row, sheet, err)
	}
	return nil
}

// AppendRow claims the row after the current last one. A concurrent append that wins the same
// row number makes the conditional put fail and the claim is retried.
func (r *rowsStore) AppendRow(ctx context.Context, sheet string, values []string) error {
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		last, err := r.lastRow(ctx, sheet)
		if err != nil {
			return err
		}

		err = r.put(ctx, sheet, last+1, values, "attribute_not_exists(#row)")
		if err == nil {
			return nil
		}
		if !isConditionalCheckFailed(err) {
			return fmt.Errorf("failed to append row to %s: %w", sheet, err)
		}

		r.logger.Warn("append raced with another writer, retrying",
			logger.String("sheet", sheet),
			logger.Int("row", last+1))
	}
	return fmt.Errorf("failed to append row to %s after %d attempts", sheet, maxAppendAttempts)
}

func (r *rowsStore) lastRow(ctx context.Context, sheet string) (int, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("#sheet = :sheet"),
		ExpressionAttributeNames: map[string]string{
			"#sheet": "sheet",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sheet": &types.AttributeValueMemberS{Value: sheet},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query last row of %s: %w", sheet, err)
	}
	if len(result.Items) == 0 {
		return 0, nil
	}

	var row rowItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &row); err != nil {
		return 0, fmt.Errorf("failed to unmarshal row: %w", err)
	}
	return row.Row, nil
}

func (r *rowsStore) put(ctx context.Context, sheet string, row int, values []string, condition string) error {
	item, err := attributevalue.MarshalMap(rowItem{
		Sheet:     sheet,
		Row:       row,
		Cells:     values,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
		input.ExpressionAttributeNames = map[string]string{"#row": "row"}
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		return err
	}

	r.logger.Debug("row written",
		logger.String("sheet", sheet),
		logger.Int("row", row))
	return nil
}

func isConditionalCheckFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}
