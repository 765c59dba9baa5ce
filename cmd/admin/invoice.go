package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
)

func invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Format or parse InvoiceId values",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "format APP MERCHANT ORDER",
		Short: "Build the InvoiceId sent to the gateway",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.NewInvoiceID(args[0], args[1], args[2])
			// A value that does not parse back would be rejected on callback
			if _, err := domain.ParseInvoiceID(id.String()); err != nil {
				return fmt.Errorf("%s cannot be parsed back: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "parse ID",
		Short: "Split an InvoiceId into its components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseInvoiceID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "app:      %s\n", id.AppID)
			fmt.Fprintf(out, "merchant: %s\n", id.MerchantID)
			fmt.Fprintf(out, "order:    %s\n", id.OrderID)
			return nil
		},
	})

	return cmd
}
