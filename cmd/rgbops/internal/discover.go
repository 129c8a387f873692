package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ngerakines/rgbops/client"
)

var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Look for OpenRGB servers advertised over mDNS",
	RunE: func(cmd *cobra.Command, args []string) error {
		servers, err := client.Discover(context.Background(), discoverTimeout)
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			fmt.Println("No OpenRGB servers found.")
			return nil
		}
		for _, server := range servers {
			fmt.Println(server)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 3*time.Second, "how long to wait for answers")
	RootCmd.AddCommand(discoverCmd)
}
