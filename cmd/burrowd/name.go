package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/burrow/pkg/sandbox"
)

// Operator utility for the reversible tenant <-> sandbox name mapping,
// handy when reading docker ps output.
var nameCmd = &cobra.Command{
	Use:   "name",
	Short: "Convert between tenant ids and sandbox names",
}

var nameEncodeCmd = &cobra.Command{
	Use:   "encode [tenant-id]",
	Short: "Print the sandbox name for a tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := sandbox.Name(args[0])
		if err != nil {
			return err
		}
		fmt.Println(name)
		return nil
	},
}

var nameDecodeCmd = &cobra.Command{
	Use:   "decode [sandbox-name]",
	Short: "Print the tenant id encoded in a sandbox name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := sandbox.TenantID(args[0])
		if err != nil {
			return err
		}
		fmt.Println(tenantID)
		return nil
	},
}

func init() {
	nameCmd.AddCommand(nameEncodeCmd)
	nameCmd.AddCommand(nameDecodeCmd)
}
