package compositor

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// NewClient builds a DynamoDB client from the default AWS configuration
// chain (environment, shared config, instance role).
func NewClient(ctx context.Context, optFns ...func(*config.LoadOptions) error) (*ddb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, NewError("loading aws configuration",
			WithCode(ErrRuntime), WithCause(err))
	}
	return ddb.NewFromConfig(cfg), nil
}
