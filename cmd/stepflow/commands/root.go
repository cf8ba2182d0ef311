package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stepflow/stepflow/cmd/stepflow/cli"
	"github.com/stepflow/stepflow/common/logger"
	"github.com/stepflow/stepflow/common/version"
)

const (
	DefaultConfigDir = "~/"
	ConfigFileName   = ".stepflow"
)

var (
	defaultConfigFilePath = fmt.Sprintf("%s%s.yml", DefaultConfigDir, ConfigFileName)
)

type GlobalConfig struct {
	Debug          bool
	LogLevels      string
	ConfigFilePath string
}

var Global = &GlobalConfig{}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVarP(
		&Global.ConfigFilePath,
		"config",
		"c",
		defaultConfigFilePath,
		"The config file to use when executing commands.")

	RootCmd.PersistentFlags().BoolVarP(
		&Global.Debug,
		"debug",
		"d",
		false,
		"Enable verbose debug output.")

	RootCmd.PersistentFlags().StringVar(
		&Global.LogLevels,
		"log-levels",
		"",
		fmt.Sprintf("Per-subsystem log levels, e.g. 'Scheduler=debug,Job=trace'. Valid levels: %s", logger.ListLogLevels()))
}

// Execute runs the root command and exits the process with its result. Child
// commands register themselves with RootCmd in their own init functions.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cli.Exit(RootCmd.Execute())
}

// MakeLogFactory builds the log factory used by all commands, honoring the
// global debug and log-level settings.
func MakeLogFactory() (logger.LogFactory, error) {
	levels := Global.LogLevels
	if Global.Debug && levels == "" {
		levels = "Scheduler=debug,Job=debug,TaskManager=debug"
	}
	registry, err := logger.NewLogRegistry(logger.LogLevelConfig(levels))
	if err != nil {
		return nil, err
	}
	return logger.MakeLogrusLogFactoryStdOut(registry), nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if Global.ConfigFilePath != "" && Global.ConfigFilePath != defaultConfigFilePath {
		viper.SetConfigFile(Global.ConfigFilePath)
	} else {
		viper.SetConfigName(ConfigFileName)
		viper.AddConfigPath(DefaultConfigDir)
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	err := viper.ReadInConfig()
	if err == nil {
		Global.ConfigFilePath = viper.ConfigFileUsed()
		cli.Stderr.Printf("Using config file: %s", viper.ConfigFileUsed())
	} else {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
		default:
			cli.Exit(fmt.Errorf("error loading config file (%s): %s", viper.ConfigFileUsed(), err))
		}
	}
}

var RootCmd = &cobra.Command{
	Use:     "stepflow",
	Short:   "Stepflow cooperative job scheduler",
	Long:    `Stepflow runs declarative job lists on a single-threaded cooperative scheduler, with dependency ordering, retries, time budgets and durable queue state.`,
	Version: version.VersionToString(),
}
