package run

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/cmd/stepflow/commands"
	"github.com/stepflow/stepflow/cmd/stepflow/utils"
	"github.com/stepflow/stepflow/scheduler"
	"github.com/stepflow/stepflow/taskman"
	"github.com/stepflow/stepflow/tasks"
)

func init() {
	runCmd.Flags().StringVar(
		&runCmdConfig.jobsFile,
		"jobs",
		"jobs.yml",
		"The YAML file declaring the jobs to run")
	runCmd.Flags().StringVar(
		&runCmdConfig.stateFile,
		"state",
		"~/.stepflow/state.json",
		"Where to save unfinished queue state on interrupt")
	runCmd.Flags().IntVar(
		&runCmdConfig.poolSize,
		"pool-size",
		scheduler.DefaultPoolSize,
		"The maximum number of jobs admitted to the queue")
	commands.RootCmd.AddCommand(runCmd)
}

var runCmdConfig = struct {
	jobsFile  string
	stateFile string
	poolSize  int
}{}

var runCmd = &cobra.Command{
	Use:           "run",
	Short:         "Run the jobs declared in a YAML file",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logFactory, err := commands.MakeLogFactory()
		if err != nil {
			return err
		}

		stateFile, err := utils.HomeifyPath(runCmdConfig.stateFile)
		if err != nil {
			return err
		}
		err = os.MkdirAll(filepath.Dir(stateFile), 0770)
		if err != nil {
			return errors.Wrapf(err, "error making state directory for %q", stateFile)
		}

		clk := clock.New()
		resolver := tasks.NewResolver(logFactory)
		sched := scheduler.NewScheduler(resolver, clk, logFactory, scheduler.SchedulerConfig{
			PoolSize:      runCmdConfig.poolSize,
			StateFilePath: stateFile,
		})

		manager, err := taskman.New(runCmdConfig.jobsFile, sched, clk, logFactory)
		if err != nil {
			return errors.Wrap(err, "error loading jobs file")
		}

		// An interrupt makes the scheduler save its queue and exit before
		// the next turn; a second interrupt kills the process as usual.
		signalC := make(chan os.Signal, 1)
		signal.Notify(signalC, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-signalC
			signal.Stop(signalC)
			sched.RequestStop()
		}()

		manager.Run()
		return nil
	},
}
