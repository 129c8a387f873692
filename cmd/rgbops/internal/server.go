package internal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ngerakines/rgbops"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the status relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		thingManager := rgbops.NewThingManager()
		if err := viper.UnmarshalKey("things", &thingManager.Things); err != nil {
			return err
		}
		if err := viper.UnmarshalKey("statuses", &thingManager.Status); err != nil {
			return err
		}
		if err := thingManager.Init(); err != nil {
			return err
		}

		ctx := context.Background()
		rgbClient, err := connect(ctx, nil)
		if err != nil {
			return err
		}
		defer rgbClient.Close()

		startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = thingManager.StartAll(startCtx, rgbClient)
		cancel()
		if err != nil {
			return err
		}

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(2)

		statusFerry := make(chan rgbops.StatusMap)

		go func() {
			defer wg.Done()
			if err := rgbops.NewPoller(stop, &wg, statusFerry); err != nil {
				log.WithError(err).Error("Error shutting down status poller.")
			} else {
				log.Info("status poller stopped.")
			}
		}()

		ended := make(chan struct{})
		go func() {
			defer wg.Done()
			if err := rgbops.NewUpdater(stop, &wg, statusFerry, thingManager, rgbClient); err != nil {
				log.WithError(err).Error("Error shutting down status updater.")
				close(ended)
			} else {
				log.Info("status updater stopped.")
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		select {
		case <-c:
		case <-ended:
		}
		close(stop)
		wg.Wait()

		stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return thingManager.StopAll(stopCtx)
	},
}

func init() {
	RootCmd.AddCommand(serverCmd)
}
