package cmd

import (
	"fmt"
	"strings"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/provider"
	"github.com/aitoooooo/redisx/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information and supported topologies/providers",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "redisx version "+version.Version)
		fmt.Fprintln(w, "Build time: "+version.BuildTime)
		fmt.Fprintln(w, "Git commit: "+version.GitCommit)
		fmt.Fprintln(w, "Git branch: "+version.GitBranch)
		fmt.Fprintln(w, "Client name: "+version.ClientName())
		fmt.Fprintln(w, "Topologies: "+strings.Join([]string{
			models.TopologyStandalone.String(),
			models.TopologySentinel.String(),
			models.TopologyCluster.String(),
		}, ", "))
		fmt.Fprintln(w, "Providers: "+strings.Join(providerNames(), ", "))
	},
}

func providerNames() []string {
	types := provider.NewFactory().Available()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
