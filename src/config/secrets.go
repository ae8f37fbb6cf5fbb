package config

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsGetter is the subset of the Secrets Manager client used at boot.
type SecretsGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadSecrets exports the key/value pairs of the JSON secret named by
// AWS_SECRET_ID as environment variables. Variables already set win.
func LoadSecrets(ctx context.Context) error {
	secretId := os.Getenv("AWS_SECRET_ID")
	if secretId == "" {
		return nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("Error loading default config: %s\n", err.Error())
		return err
	}
	return ApplySecrets(ctx, secretsmanager.NewFromConfig(cfg), secretId)
}

func ApplySecrets(ctx context.Context, client SecretsGetter, secretId string) error {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretId),
	})
	if err != nil {
		log.Printf("Error retrieving secret %s: %s\n", secretId, err.Error())
		return err
	}
	var values map[string]string
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &values); err != nil {
		log.Printf("Error parsing secret %s: %s\n", secretId, err.Error())
		return err
	}
	for k, v := range values {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		os.Setenv(k, v)
	}
	log.Printf("Loaded %d values from secret %s\n", len(values), secretId)
	return nil
}
