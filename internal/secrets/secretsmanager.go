package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManager resolves secret ids against AWS Secrets Manager. A
// reference of the form "id#key" selects one key of a JSON secret.
type SecretsManager struct {
	api SecretsManagerAPI
}

// NewSecretsManager wraps an AWS Secrets Manager client.
func NewSecretsManager(api SecretsManagerAPI) *SecretsManager {
	return &SecretsManager{api: api}
}

// NewSecretsManagerFromConfig builds the client from an AWS configuration.
// A non-empty endpoint overrides the service endpoint.
func NewSecretsManagerFromConfig(cfg aws.Config, endpoint string) *SecretsManager {
	return NewSecretsManager(secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}))
}

// Resolve implements Resolver.
func (s *SecretsManager) Resolve(ctx context.Context, ref string) (string, error) {
	id, key, hasKey := strings.Cut(ref, "#")

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return "", fmt.Errorf("secrets manager secret '%s': %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("get secrets manager secret '%s': %w", id, err)
	}

	var value string
	switch {
	case out.SecretString != nil:
		value = *out.SecretString
	case out.SecretBinary != nil:
		value = string(out.SecretBinary)
	default:
		return "", fmt.Errorf("secrets manager secret '%s' has no value: %w", id, ErrNotFound)
	}
	if !hasKey {
		return value, nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		return "", fmt.Errorf("secrets manager secret '%s' is not a JSON object", id)
	}
	field, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("secrets manager secret '%s' key '%s': %w", id, key, ErrNotFound)
	}
	if s, ok := field.(string); ok {
		return s, nil
	}
	return fmt.Sprint(field), nil
}
