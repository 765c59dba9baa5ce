package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
	"github.com/kevin07696/cloudpayments-service/internal/adapters/secrets"
	"github.com/kevin07696/cloudpayments-service/internal/config"
)

// initSecretManager selects the backend named by SECRET_BACKEND:
//   - env (default): CLOUDPAYMENTS_API_SECRET and friends
//   - local: JSON or plain files under SECRET_LOCAL_PATH
//   - aws: AWS Secrets Manager in AWS_REGION
//   - vault: HashiCorp Vault KV v2 at VAULT_ADDR
func initSecretManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	s := cfg.Secrets

	switch s.Backend {
	case config.SecretBackendLocal:
		logger.Info("Using local secret files", zap.String("path", s.LocalPath))
		return secrets.NewLocalSecretManager(s.LocalPath, logger), nil

	case config.SecretBackendAWS:
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(s.AWSRegion)
		awsCfg.Profile = s.AWSProfile
		awsCfg.Endpoint = s.AWSEndpoint
		if s.CacheTTL > 0 {
			awsCfg.CacheTTL = s.CacheTTL
		}
		sm, err := secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("init AWS Secrets Manager: %w", err)
		}
		logger.Info("AWS Secrets Manager initialized",
			zap.String("region", awsCfg.Region),
			zap.Duration("cache_ttl", awsCfg.CacheTTL),
		)
		return sm, nil

	case config.SecretBackendVault:
		vaultCfg := secrets.DefaultVaultConfig(s.VaultAddress)
		vaultCfg.AuthMethod = s.VaultAuthMethod
		vaultCfg.Token = s.VaultToken
		vaultCfg.RoleID = s.VaultRoleID
		vaultCfg.SecretID = s.VaultSecretID
		vaultCfg.Namespace = s.VaultNamespace
		if s.VaultMountPath != "" {
			vaultCfg.MountPath = s.VaultMountPath
		}
		if s.CacheTTL > 0 {
			vaultCfg.CacheTTL = s.CacheTTL
		}
		sm, err := secrets.NewVaultAdapter(ctx, vaultCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("init Vault: %w", err)
		}
		logger.Info("Vault secret manager initialized",
			zap.String("address", vaultCfg.Address),
			zap.String("mount", vaultCfg.MountPath),
		)
		return sm, nil

	default:
		if !cfg.IsProduction() {
			logger.Info("Reading gateway secrets from the environment")
		}
		return secrets.NewEnvSecretManager(logger), nil
	}
}
