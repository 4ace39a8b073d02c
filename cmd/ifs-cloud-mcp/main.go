/*
Package main is the entry point for the ifs-cloud-mcp CLI.

ifs-cloud-mcp is an MCP server that gives AI assistants hybrid keyword and
semantic search over an imported IFS Cloud source tree.

Usage:

	ifs-cloud-mcp [command]

Available Commands:

	import        Import an IFS Cloud source archive
	index         Build the search indexes of an imported version
	serve         Run the MCP server for an IFS Cloud version
	list          List imported IFS Cloud versions
	remove        Remove an imported version
	verify        Verify configuration and version indexes
	search        Search the source of an imported version
	export-index  Export the file catalog of a version for grep/jq
	benchmark     Measure search latency of a version
	stats         Show search and file usage statistics
	config        Manage ~/.ifs-cloud-mcp.json
	version       Show version information

Examples:

	# Import and index a release
	ifs-cloud-mcp import IFS_Cloud_25.1.0.zip

	# Run as MCP server
	ifs-cloud-mcp serve --version 25.1.0

Release builds set the version with:

	-ldflags "-X github.com/khanglvm/ifs-cloud-mcp/internal/version.Version=v0.3.0"
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/cli"
	"github.com/khanglvm/ifs-cloud-mcp/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ifs-cloud-mcp",
		Short: "MCP server for searching IFS Cloud source code",
		Long: `ifs-cloud-mcp imports IFS Cloud source archives, indexes them and serves
them to AI assistants over the Model Context Protocol.

Each imported version gets:
  • a catalog of analysed files (components, APIs, references)
  • a PageRank ranking of the reference graph
  • a BM25 keyword index and a vector index for hybrid search

MCP tools: search_ifs_code, get_file_content, get_file_info, find_api,
list_components and server_info.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.NewImportCmd())
	rootCmd.AddCommand(cli.NewIndexCmd())
	rootCmd.AddCommand(cli.NewServeCmd())
	rootCmd.AddCommand(cli.NewListCmd())
	rootCmd.AddCommand(cli.NewRemoveCmd())
	rootCmd.AddCommand(cli.NewVerifyCmd())
	rootCmd.AddCommand(cli.NewSearchCmd())
	rootCmd.AddCommand(cli.NewExportIndexCmd())
	rootCmd.AddCommand(cli.NewBenchmarkCmd())
	rootCmd.AddCommand(cli.NewStatsCmd())
	rootCmd.AddCommand(cli.NewConfigCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
