package secrets

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// awsProvider looks up each requested env var name as a secret name
// in AWS Secrets Manager, optionally prefixed.
type awsProvider struct {
	client *secretsmanager.Client
	prefix string
}

func newAWSProvider(ctx context.Context, region, prefix string) (*awsProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &awsProvider{
		client: secretsmanager.NewFromConfig(cfg),
		prefix: prefix,
	}, nil
}

func (p *awsProvider) Type() string { return "aws-secrets-manager" }

func (p *awsProvider) Get(ctx context.Context, name string) (string, bool, error) {
	secretName := name
	if p.prefix != "" {
		secretName = p.prefix + name
	}
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if out.SecretString == nil {
		return "", false, nil
	}
	return *out.SecretString, true, nil
}
