package main

import (
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-universe/internal/mcp"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			server := mcp.NewServer(a.engine, a.store, a.tracker, a.producer, version)
			return server.Run(cmd.Context(), &sdk.StdioTransport{})
		},
	}
}
