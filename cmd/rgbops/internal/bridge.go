package internal

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ngerakines/rgbops/httpapi"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Serve an HTTP API in front of the OpenRGB server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		rgbClient, err := connect(ctx, reg)
		if err != nil {
			return err
		}
		defer rgbClient.Close()

		go func() {
			select {
			case <-rgbClient.Done():
				log.WithError(rgbClient.Err()).Error("OpenRGB session ended, stopping bridge.")
				stop()
			case <-ctx.Done():
			}
		}()

		return httpapi.Serve(ctx, viper.GetString("bridge.address"), httpapi.NewHandler(rgbClient), reg)
	},
}

func init() {
	bridgeCmd.Flags().String("listen", ":8742", "address for the HTTP bridge")
	viper.BindPFlag("bridge.address", bridgeCmd.Flags().Lookup("listen"))
	RootCmd.AddCommand(bridgeCmd)
}
