package internal

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ngerakines/rgbops/client"
	"github.com/ngerakines/rgbops/conn"
	"github.com/ngerakines/rgbops/wire"
)

var (
	cfgFile string
)

var RootCmd = &cobra.Command{
	Use:   "rgbops",
	Short: "rgbops drives OpenRGB lighting and relays statuses to it.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of rgbops",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rgbops v1.0.0 -- HEAD (OpenRGB protocol %d)\n", wire.ProtocolVersion)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./rgbops.yaml)")
	RootCmd.PersistentFlags().String("address", client.DefaultAddress, "OpenRGB server address")
	viper.BindPFlag("openrgb.address", RootCmd.PersistentFlags().Lookup("address"))

	viper.SetDefault("openrgb.address", client.DefaultAddress)
	viper.SetDefault("openrgb.name", "rgbops")
	viper.SetDefault("openrgb.version", wire.ProtocolVersion)
	viper.SetDefault("openrgb.timeout", conn.DefaultRequestTimeout)
	viper.SetDefault("status.location", "http://localhost:8080/")
	viper.SetDefault("status.interval", 3)
	viper.SetDefault("bridge.address", ":8742")
	viper.SetDefault("log.level", "info")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RGBOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(path.Join(home, ".rgbops"))
		viper.AddConfigPath("/etc/rgbops/")
		viper.SetConfigName("rgbops")
	}

	if err := viper.ReadInConfig(); err != nil {
		log.WithError(err).Debug("Can't read config")
	}

	level, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.WithError(err).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// connect opens a client session configured from viper. Metrics are
// registered with reg when it is not nil.
func connect(ctx context.Context, reg prometheus.Registerer) (client.RGBClient, error) {
	opts := []conn.Option{
		conn.WithClientName(viper.GetString("openrgb.name")),
		conn.WithMaxVersion(uint32(viper.GetInt("openrgb.version"))),
		conn.WithRequestTimeout(viper.GetDuration("openrgb.timeout")),
		conn.WithLogger(log.StandardLogger()),
	}
	if reg != nil {
		opts = append(opts, conn.WithMetrics(conn.NewMetrics(reg)))
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return client.New(dialCtx, viper.GetString("openrgb.address"), opts...)
}
