// Copyright 2026 The GeoRoute Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/georoute/georoute/geocode"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

// Log is the structured logger shared by all commands.
var Log = logrus.New()

func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(logrus.DebugLevel)
	case "info":
		Log.SetLevel(logrus.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(logrus.WarnLevel)
	case "error":
		Log.SetLevel(logrus.ErrorLevel)
	case "fatal":
		Log.SetLevel(logrus.FatalLevel)
	default:
		log.Fatalf("unknown log level %q", level)
	}
}

// logSink adapts resolver diagnostics to the CLI logger. Diagnostics are
// routine events, so they log at info, not warning.
func logSink(msg string) { Log.Info(msg) }

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "georoute",
	Short: "batch address resolution with persistent caching",
	Long: `
georoute resolves US street addresses to coordinates through free geocoding
services, degrading gracefully from exact street fixes to city-level ones,
and remembers every answer so a lookup is never paid for twice.
`,
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.georoute.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "log level: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".georoute")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("GEOROUTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Printf("error reading config file: %s\n", err)
		}
	}

	viper.SetDefault("nominatim.email", "")
	viper.SetDefault("nominatim.useragent", fmt.Sprintf("georoute/%s (+https://github.com/georoute/georoute)", Version))
	viper.SetDefault("googlemaps.apikey", "")
	viper.SetDefault("cache.path", "")
	viper.SetDefault("resolve.workers", 1)

	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	setLogLevel(levelString)
}

// interruptContext cancels on SIGINT/SIGTERM so a batch stops cleanly
// between records.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// cachePath resolves the cache location: flag/config first, then the
// platform's user cache directory.
func cachePath() (string, error) {
	if p := viper.GetString("cache.path"); p != "" {
		return filepath.Abs(p)
	}

	return geocode.DefaultCachePath()
}
