// Copyright 2025 CallWeave
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretProvider resolves named secrets such as the credential master
// key. Implementations must be safe for concurrent use.
type SecretProvider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// EnvSecretProvider reads secrets from environment variables. Secret
// names are upper-cased with dashes replaced, so "credential-master-key"
// resolves from CREDENTIAL_MASTER_KEY.
type EnvSecretProvider struct{}

func (p *EnvSecretProvider) GetSecret(ctx context.Context, name string) (string, error) {
	envName := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	value := os.Getenv(envName)
	if value == "" {
		return "", fmt.Errorf("secret %s not found in environment (%s)", name, envName)
	}
	return value, nil
}

// AWSSecretProvider fetches secrets from AWS Secrets Manager with a
// short-lived in-memory cache so hot paths don't hit the API.
type AWSSecretProvider struct {
	client   *secretsmanager.Client
	cache    map[string]cachedSecret
	cacheMu  sync.RWMutex
	cacheTTL time.Duration
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// NewAWSSecretProvider creates a provider using the default AWS
// credential chain for the given region.
func NewAWSSecretProvider(ctx context.Context, region string) (*AWSSecretProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSecretProvider{
		client:   secretsmanager.NewFromConfig(cfg),
		cache:    make(map[string]cachedSecret),
		cacheTTL: 5 * time.Minute,
	}, nil
}

func (p *AWSSecretProvider) GetSecret(ctx context.Context, name string) (string, error) {
	p.cacheMu.RLock()
	if cached, ok := p.cache[name]; ok && time.Now().Before(cached.expiresAt) {
		p.cacheMu.RUnlock()
		return cached.value, nil
	}
	p.cacheMu.RUnlock()

	result, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch secret %s: %w", maskSecretName(name), err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", maskSecretName(name))
	}

	p.cacheMu.Lock()
	p.cache[name] = cachedSecret{
		value:     *result.SecretString,
		expiresAt: time.Now().Add(p.cacheTTL),
	}
	p.cacheMu.Unlock()

	return *result.SecretString, nil
}

// maskSecretName keeps only the trailing segment of an ARN or path so
// log lines don't leak full secret identifiers.
func maskSecretName(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 && idx < len(name)-1 {
		return "***/" + name[idx+1:]
	}
	if idx := strings.LastIndex(name, ":"); idx >= 0 && idx < len(name)-1 {
		return "***:" + name[idx+1:]
	}
	return name
}

// loadCredentialMasterKey resolves the credential master key from
// CALLWEAVE_CREDENTIAL_KEY, or from AWS Secrets Manager when
// CALLWEAVE_CREDENTIAL_KEY_SECRET is set.
func loadCredentialMasterKey(ctx context.Context) ([]byte, error) {
	if key := os.Getenv("CALLWEAVE_CREDENTIAL_KEY"); key != "" {
		return []byte(key), nil
	}

	secretName := os.Getenv("CALLWEAVE_CREDENTIAL_KEY_SECRET")
	if secretName == "" {
		return nil, fmt.Errorf("no credential master key configured " +
			"(set CALLWEAVE_CREDENTIAL_KEY or CALLWEAVE_CREDENTIAL_KEY_SECRET)")
	}

	region := getEnv("AWS_REGION", "us-east-1")
	provider, err := NewAWSSecretProvider(ctx, region)
	if err != nil {
		return nil, err
	}

	log.Printf("[SECRETS] Loading credential master key from Secrets Manager: %s", maskSecretName(secretName))
	key, err := provider.GetSecret(ctx, secretName)
	if err != nil {
		return nil, err
	}
	return []byte(key), nil
}
