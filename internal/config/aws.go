package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type ParametersGetter interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// FetchAWSParams reads decrypted values of the given SSM parameters, keyed by parameter name.
func FetchAWSParams(ctx context.Context, keys ...string) (map[string]string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(DefaultAWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return fetchParams(ctx, ssm.NewFromConfig(cfg), keys...)
}

func fetchParams(ctx context.Context, client ParametersGetter, keys ...string) (map[string]string, error) {
	out, err := client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          keys,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get parameters: %w", err)
	}

	params := make(map[string]string, len(out.Parameters))
	for _, param := range out.Parameters {
		params[aws.ToString(param.Name)] = aws.ToString(param.Value)
	}

	if len(params) != len(keys) {
		missingKeys := make([]string, 0)
		for _, key := range keys {
			if _, exists := params[key]; !exists {
				missingKeys = append(missingKeys, key)
			}
		}

		return params, fmt.Errorf("missing parameter values: %v", missingKeys)
	}

	return params, nil
}
