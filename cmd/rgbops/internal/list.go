package internal

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/ngerakines/rgbops/device"
)

var listVerbose bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the controllers known to the OpenRGB server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rgbClient, err := connect(ctx, nil)
		if err != nil {
			return err
		}
		defer rgbClient.Close()

		controllers, err := rgbClient.Controllers(ctx)
		if err != nil {
			return err
		}
		if listVerbose {
			for _, c := range controllers {
				pretty.Println(c)
			}
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tNAME\tTYPE\tMODE\tZONES")
		for _, c := range controllers {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.Index, c.Name, c.Type, activeName(c), zoneList(c))
		}
		return w.Flush()
	},
}

func activeName(c *device.Controller) string {
	if m := c.Active(); m != nil {
		return m.Name
	}
	return "-"
}

func zoneList(c *device.Controller) string {
	s := ""
	for i, z := range c.Zones {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d:%s(%d)", z.Index, z.Name, z.LEDCount)
	}
	return s
}

func init() {
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "dump every field of each controller")
	RootCmd.AddCommand(listCmd)
}
