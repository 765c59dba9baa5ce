package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
	"github.com/kevin07696/cloudpayments-service/internal/adapters/secrets"
	"github.com/kevin07696/cloudpayments-service/internal/config"
)

// secretCmd writes gateway credentials through the same backends the server reads.
// Backend settings come from flags, falling back to the server's environment variables.
func secretCmd() *cobra.Command {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SECRET_BACKEND", config.SecretBackendEnv)
	v.SetDefault("SECRET_LOCAL_PATH", "./secrets")
	v.SetDefault("AWS_REGION", "eu-central-1")
	v.SetDefault("VAULT_AUTH_METHOD", "token")
	v.SetDefault("VAULT_MOUNT_PATH", "secret")

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage gateway credentials in the secret backend",
	}

	put := &cobra.Command{
		Use:   "put PATH VALUE",
		Short: "Store a secret value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, err := newSecretStore(ctx, v, zap.NewNop())
			if err != nil {
				return err
			}

			version, err := store.PutSecret(ctx, args[0], args[1], map[string]string{
				"managed-by": "cpadmin",
			})
			if err != nil {
				return fmt.Errorf("put %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "stored %s", args[0])
			if version != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (version %s)", version)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	flags := put.Flags()
	flags.String("backend", "", "env, local, aws or vault (default $SECRET_BACKEND)")
	flags.String("local-path", "", "Directory for the local backend (default $SECRET_LOCAL_PATH)")
	flags.String("aws-region", "", "AWS region (default $AWS_REGION)")
	flags.String("vault-addr", "", "Vault address (default $VAULT_ADDR)")
	_ = v.BindPFlag("SECRET_BACKEND", flags.Lookup("backend"))
	_ = v.BindPFlag("SECRET_LOCAL_PATH", flags.Lookup("local-path"))
	_ = v.BindPFlag("AWS_REGION", flags.Lookup("aws-region"))
	_ = v.BindPFlag("VAULT_ADDR", flags.Lookup("vault-addr"))

	cmd.AddCommand(put)
	return cmd
}

func newSecretStore(ctx context.Context, v *viper.Viper, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	backend := strings.ToLower(v.GetString("SECRET_BACKEND"))

	switch backend {
	case config.SecretBackendEnv:
		return secrets.NewEnvSecretManager(logger), nil
	case config.SecretBackendLocal:
		return secrets.NewLocalSecretManager(v.GetString("SECRET_LOCAL_PATH"), logger), nil
	case config.SecretBackendAWS:
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(v.GetString("AWS_REGION"))
		awsCfg.Profile = v.GetString("AWS_PROFILE")
		awsCfg.Endpoint = v.GetString("AWS_ENDPOINT")
		return secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)
	case config.SecretBackendVault:
		vaultCfg := secrets.DefaultVaultConfig(v.GetString("VAULT_ADDR"))
		vaultCfg.AuthMethod = v.GetString("VAULT_AUTH_METHOD")
		vaultCfg.Token = v.GetString("VAULT_TOKEN")
		vaultCfg.RoleID = v.GetString("VAULT_ROLE_ID")
		vaultCfg.SecretID = v.GetString("VAULT_SECRET_ID")
		vaultCfg.Namespace = v.GetString("VAULT_NAMESPACE")
		vaultCfg.MountPath = v.GetString("VAULT_MOUNT_PATH")
		return secrets.NewVaultAdapter(ctx, vaultCfg, logger)
	default:
		return nil, fmt.Errorf("unknown secret backend %q", backend)
	}
}
