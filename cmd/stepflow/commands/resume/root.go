package resume

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/cmd/stepflow/commands"
	"github.com/stepflow/stepflow/cmd/stepflow/utils"
	"github.com/stepflow/stepflow/common/gerror"
	"github.com/stepflow/stepflow/scheduler"
	"github.com/stepflow/stepflow/tasks"
)

func init() {
	resumeCmd.Flags().StringVar(
		&resumeCmdConfig.stateFile,
		"state",
		"~/.stepflow/state.json",
		"The state file to reload queued jobs from")
	commands.RootCmd.AddCommand(resumeCmd)
}

var resumeCmdConfig = struct {
	stateFile string
}{}

var resumeCmd = &cobra.Command{
	Use:           "resume",
	Short:         "Reload a saved queue from a state file and run it",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logFactory, err := commands.MakeLogFactory()
		if err != nil {
			return err
		}
		log := logFactory("Resume")

		stateFile, err := utils.HomeifyPath(resumeCmdConfig.stateFile)
		if err != nil {
			return err
		}

		clk := clock.New()
		resolver := tasks.NewResolver(logFactory)
		sched := scheduler.NewScheduler(resolver, clk, logFactory, scheduler.SchedulerConfig{
			StateFilePath: stateFile,
		})

		err = sched.LoadJobs()
		if err != nil {
			// A corrupt state file means starting over with an empty queue;
			// individual unloadable records have already been skipped.
			if gerror.IsStateCorrupt(err) {
				log.Errorf("State file is corrupt; starting with an empty queue: %v", err)
			} else {
				log.Warnf("Some jobs could not be reloaded: %v", err)
			}
		}

		signalC := make(chan os.Signal, 1)
		signal.Notify(signalC, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-signalC
			signal.Stop(signalC)
			sched.RequestStop()
		}()

		sched.Run()
		return nil
	},
}
