package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"cadbridge/internal/domain"
	"cadbridge/internal/logger"
	repositoryIface "cadbridge/internal/repository/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// DefaultRunsTable is keyed by run_id.
	DefaultRunsTable = "sync_runs"
	// startedAtIndex is a GSI with hash key kind and range key started_at.
	startedAtIndex = "kind_started_at_index"
)

// Client is the subset of the DynamoDB API the repository uses.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type runRepository struct {
	client    Client
	tableName string
	logger    logger.Logger
}

// NewRunRepository creates a new DynamoDB run repository
func NewRunRepository(client Client, tableName string, log logger.Logger) repositoryIface.RunRepository {
	if tableName == "" {
		tableName = DefaultRunsTable
	}
	return &runRepository{
		client:    client,
		tableName: tableName,
		logger:    log.With(logger.String("component", "run_repository")),
	}
}

func (r *runRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	run.Kind = domain.SyncRunKind
	item, err := attributevalue.MarshalMap(run)
	if err != nil {
		r.logger.Error("failed to marshal run", logger.Error(err))
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.Error("failed to create run", logger.String("run_id", run.RunID), logger.Error(err))
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

func (r *runRepository) GetByID(ctx context.Context, runID string) (*domain.SyncRun, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("run_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: runID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		r.logger.Error("failed to get run", logger.Error(err))
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", repositoryIface.ErrRunNotFound, runID)
	}

	var run domain.SyncRun
	if err := attributevalue.UnmarshalMap(result.Items[0], &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}

	return &run, nil
}

func (r *runRepository) List(ctx context.Context, limit int, nextToken string) (*repositoryIface.PaginationResult, error) {
	queryInput := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(startedAtIndex),
		KeyConditionExpression: aws.String("kind = :kind"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":kind": &types.AttributeValueMemberS{Value: domain.SyncRunKind},
		},
		ScanIndexForward: aws.Bool(false), // newest first
		Limit:            aws.Int32(int32(limit)),
	}

	if nextToken != "" {
		exclusiveStartKey, err := decodeNextToken(nextToken)
		if err != nil {
			r.logger.Warn("failed to decode next token", logger.Error(err))
			return nil, fmt.Errorf("%w: %v", repositoryIface.ErrInvalidNextToken, err)
		}
		queryInput.ExclusiveStartKey = exclusiveStartKey
	}

	result, err := r.client.Query(ctx, queryInput)
	if err != nil {
		r.logger.Error("failed to query runs", logger.Error(err))
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	runs := make([]*domain.SyncRun, 0, len(result.Items))
	for _, item := range result.Items {
		var run domain.SyncRun
		if err := attributevalue.UnmarshalMap(item, &run); err != nil {
			r.logger.Warn("failed to unmarshal run", logger.Error(err))
			continue
		}
		runs = append(runs, &run)
	}

	var encodedNextToken string
	if result.LastEvaluatedKey != nil {
		encodedNextToken, err = encodeNextToken(result.LastEvaluatedKey)
		if err != nil {
			r.logger.Warn("failed to encode next token", logger.Error(err))
		}
	}

	return &repositoryIface.PaginationResult{
		Runs:      runs,
		NextToken: encodedNextToken,
	}, nil
}

// Helper functions for pagination token encoding/decoding
func encodeNextToken(lastEvaluatedKey map[string]types.AttributeValue) (string, error) {
	if lastEvaluatedKey == nil {
		return "", nil
	}

	simpleMap := make(map[string]string)
	for key, value := range lastEvaluatedKey {
		switch v := value.(type) {
		case *types.AttributeValueMemberS:
			simpleMap[key] = "S:" + v.Value
		case *types.AttributeValueMemberN:
			simpleMap[key] = "N:" + v.Value
		default:
			return "", fmt.Errorf("unsupported attribute type: %T", value)
		}
	}

	jsonData, err := json.Marshal(simpleMap)
	if err != nil {
		return "", fmt.Errorf("failed to json marshal: %w", err)
	}

	return base64.URLEncoding.EncodeToString(jsonData), nil
}

func decodeNextToken(nextToken string) (map[string]types.AttributeValue, error) {
	if nextToken == "" {
		return nil, nil
	}

	jsonData, err := base64.URLEncoding.DecodeString(nextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decode next token: %w", err)
	}

	var simpleMap map[string]string
	if err := json.Unmarshal(jsonData, &simpleMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal next token: %w", err)
	}

	result := make(map[string]types.AttributeValue)
	for key, value := range simpleMap {
		if len(value) < 2 || value[1] != ':' {
			return nil, fmt.Errorf("invalid token format for key %s", key)
		}

		data := value[2:]
		switch value[:1] {
		case "S":
			result[key] = &types.AttributeValueMemberS{Value: data}
		case "N":
			result[key] = &types.AttributeValueMemberN{Value: data}
		default:
			return nil, fmt.Errorf("unsupported attribute type prefix: %s", value[:1])
		}
	}

	return result, nil
}
