package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/services/callback"
	"github.com/kevin07696/cloudpayments-service/internal/services/secret"
	"github.com/kevin07696/cloudpayments-service/internal/util"
)

func signCmd() *cobra.Command {
	var secretValue, bodyFile string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the Content-Hmac value for a notification body",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(bodyFile)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), callback.Sign(body, secretValue))
			return nil
		},
	}

	cmd.Flags().StringVar(&secretValue, "secret", "", "API secret")
	cmd.Flags().StringVar(&bodyFile, "body", "", "File with the raw request body")
	_ = cmd.MarkFlagRequired("secret")
	_ = cmd.MarkFlagRequired("body")

	return cmd
}

// verifyCmd checks a captured CGI request: the environment dump supplies the
// headers the way the web server passed them.
func verifyCmd() *cobra.Command {
	var secretValue, bodyFile, envFile string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a captured notification against an API secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(bodyFile)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}

			f, err := os.Open(envFile)
			if err != nil {
				return fmt.Errorf("open env dump: %w", err)
			}
			defer f.Close()

			environ, err := util.ReadEnvDump(f)
			if err != nil {
				return fmt.Errorf("read env dump: %w", err)
			}
			headers := util.HeadersFromEnv(environ)

			verifier := callback.NewSignatureVerifier(secret.NewStaticProvider(secretValue, ""))
			if err := verifier.Verify(headers, body); err != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "INVALID: %v\n", err)
				fmt.Fprintf(out, "  received: %q\n", headers.Get(callback.SignatureHeader))
				if secretValue != "" {
					fmt.Fprintf(out, "  expected: %q\n", callback.Sign(body, secretValue))
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			if invoice := invoiceFromBody(headers.Get("Content-Type"), body); invoice != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  InvoiceId: %s\n", invoice)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&secretValue, "secret", "", "API secret")
	cmd.Flags().StringVar(&bodyFile, "body", "", "File with the raw request body")
	cmd.Flags().StringVar(&envFile, "env", "", "File with the CGI environment, one NAME=value per line")
	_ = cmd.MarkFlagRequired("body")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

func invoiceFromBody(contentType string, body []byte) string {
	fields, err := domain.ParseCallbackFields(contentType, body)
	if err != nil {
		return ""
	}
	return fields.InvoiceID
}
