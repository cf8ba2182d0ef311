// Package taskman loads a declarative YAML job list and submits the
// resulting jobs to a scheduler.
package taskman

import (
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/stepflow/stepflow/common/gerror"
	"github.com/stepflow/stepflow/common/logger"
	"github.com/stepflow/stepflow/scheduler"
)

// jobDefinition is one entry in the jobs file. The id is local to the file
// and is only used to express dependencies between entries; the scheduler
// job itself gets a generated unique ID.
type jobDefinition struct {
	ID           string                 `yaml:"id"`
	Function     string                 `yaml:"function"`
	Args         []interface{}          `yaml:"args"`
	Kwargs       map[string]interface{} `yaml:"kwargs"`
	StartAt      int                    `yaml:"start_at"`
	Dependencies []string               `yaml:"dependencies"`
}

type jobsFile struct {
	Jobs []*jobDefinition `yaml:"jobs"`
}

// TaskManager materializes the jobs declared in a YAML file and schedules
// them. Dependencies may only reference ids declared earlier in the file, so
// the declared order is a valid topological order and cycles cannot be
// expressed.
type TaskManager struct {
	filePath  string
	jobs      map[string]*scheduler.Job
	scheduler *scheduler.Scheduler
	clk       clock.Clock
	logger.Log
}

func New(filePath string, sched *scheduler.Scheduler, clk clock.Clock, logFactory logger.LogFactory) (*TaskManager, error) {
	t := &TaskManager{
		filePath:  filePath,
		jobs:      make(map[string]*scheduler.Job),
		scheduler: sched,
		clk:       clk,
		Log:       logFactory("TaskManager"),
	}
	err := t.loadFile()
	if err != nil {
		return nil, errors.Wrapf(err, "error loading jobs file %q", filePath)
	}
	return t, nil
}

func (t *TaskManager) loadFile() error {
	data, err := os.ReadFile(t.filePath)
	if err != nil {
		return errors.Wrap(err, "error reading file")
	}
	var file jobsFile
	err = yaml.Unmarshal(data, &file)
	if err != nil {
		return errors.Wrap(err, "error parsing YAML")
	}
	for i, definition := range file.Jobs {
		if definition.ID == "" {
			return gerror.NewErrValidationFailed("job entry is missing an id").EDetail("entry", i)
		}
		if _, ok := t.jobs[definition.ID]; ok {
			return gerror.NewErrValidationFailed("duplicate job id").EDetail("id", definition.ID)
		}
		job, err := t.createJob(definition)
		if err != nil {
			return errors.Wrapf(err, "error creating job %q", definition.ID)
		}
		t.jobs[definition.ID] = job
		err = t.scheduler.Schedule(job)
		if err != nil {
			return errors.Wrapf(err, "error scheduling job %q", definition.ID)
		}
		t.Infof("Scheduled job %s (%s) from %s", definition.ID, job.ID, t.filePath)
	}
	return nil
}

func (t *TaskManager) createJob(definition *jobDefinition) (*scheduler.Job, error) {
	var dependencies []*scheduler.Job
	for _, depID := range definition.Dependencies {
		dep, ok := t.jobs[depID]
		if !ok {
			return nil, gerror.NewErrNotFound("dependency must be declared earlier in the file").
				EDetail("dependency", depID)
		}
		dependencies = append(dependencies, dep)
	}

	startAt := time.Time{}
	if definition.StartAt > 0 {
		startAt = t.clk.Now().Add(time.Duration(definition.StartAt) * time.Second)
	}

	return t.scheduler.NewJob(scheduler.JobConfig{
		ID:           uuid.New().String(),
		FuncName:     definition.Function,
		Args:         normalizeValues(definition.Args),
		Kwargs:       normalizeMap(definition.Kwargs),
		StartAt:      startAt,
		Dependencies: dependencies,
	})
}

// Run executes all scheduled jobs to completion.
func (t *TaskManager) Run() {
	t.Infof("Starting scheduler with %d job(s)", len(t.jobs))
	t.scheduler.Run()
}

// Job returns the scheduled job declared under the given file-local id.
func (t *TaskManager) Job(id string) *scheduler.Job {
	return t.jobs[id]
}

// normalizeValues rewrites the map types produced by the YAML decoder into
// plain string-keyed maps, so that job arguments stay serializable to the
// JSON state file.
func normalizeValues(values []interface{}) []interface{} {
	if values == nil {
		return nil
	}
	normalized := make([]interface{}, len(values))
	for i, value := range values {
		normalized[i] = normalizeValue(value)
	}
	return normalized
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	normalized := make(map[string]interface{}, len(m))
	for key, value := range m {
		normalized[key] = normalizeValue(value)
	}
	return normalized
}

func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for key, val := range v {
			m[fmt.Sprintf("%v", key)] = normalizeValue(val)
		}
		return m
	case map[string]interface{}:
		return normalizeMap(v)
	case []interface{}:
		return normalizeValues(v)
	default:
		return v
	}
}
