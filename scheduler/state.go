package scheduler

import (
	"encoding/json"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/stepflow/stepflow/common/gerror"
)

// jobRecord is the on-disk shape of a queued job. Dependencies are nested by
// value; shared dependencies are deduplicated by job_id when loading.
type jobRecord struct {
	JobID          string                 `json:"job_id"`
	Status         string                 `json:"status"`
	Args           []interface{}          `json:"args"`
	Kwargs         map[string]interface{} `json:"kwargs"`
	StartAt        float64                `json:"start_at"`
	MaxWorkingTime float64                `json:"max_working_time"`
	MaxTries       int                    `json:"max_tries"`
	CurrentTries   int                    `json:"current_tries"`
	FuncName       string                 `json:"func_name"`
	Dependencies   []*jobRecord           `json:"dependencies,omitempty"`
}

func recordFromJob(job *Job) *jobRecord {
	record := &jobRecord{
		JobID:          job.ID,
		Status:         job.Status.String(),
		Args:           job.Args,
		Kwargs:         job.Kwargs,
		StartAt:        timeToSeconds(job.StartAt),
		MaxWorkingTime: durationToSeconds(job.MaxWorkingTime),
		MaxTries:       job.MaxTries,
		CurrentTries:   job.CurrentTries,
		FuncName:       job.FuncName,
	}
	for _, dep := range job.Dependencies {
		record.Dependencies = append(record.Dependencies, recordFromJob(dep))
	}
	return record
}

func timeToSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func secondsToTime(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*float64(time.Second)))
}

func durationToSeconds(d time.Duration) float64 {
	if d == NoTimeLimit {
		return -1
	}
	return d.Seconds()
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds < 0 {
		return NoTimeLimit
	}
	return time.Duration(seconds * float64(time.Second))
}

// SaveJobs serializes every queued job, including the dependency closure of
// each, to the state file. The write is not atomic; a partial file is
// detected and discarded on load.
func (s *Scheduler) SaveJobs() error {
	s.mu.Lock()
	records := make([]*jobRecord, 0, len(s.queue))
	for _, job := range s.queue {
		records = append(records, recordFromJob(job))
	}
	s.mu.Unlock()

	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "error serializing job queue")
	}
	err = os.WriteFile(s.config.StateFilePath, data, 0644)
	if err != nil {
		return errors.Wrapf(err, "error writing state file %q", s.config.StateFilePath)
	}
	s.Infof("Saved %d job(s) to %s", len(records), s.config.StateFilePath)
	return nil
}

// LoadJobs reads the state file and enqueues every job that can be
// reconstructed. Records that cannot be rebuilt (unknown task name, cyclic
// dependencies) are skipped; the returned error aggregates their failures
// while the rest of the queue loads normally. A missing state file is not an
// error. A corrupt file adds no jobs to the queue and returns StateCorrupt.
func (s *Scheduler) LoadJobs() error {
	data, err := os.ReadFile(s.config.StateFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.Debugf("No state file at %s; nothing to load", s.config.StateFilePath)
			return nil
		}
		return errors.Wrapf(err, "error reading state file %q", s.config.StateFilePath)
	}

	var records []*jobRecord
	err = json.Unmarshal(data, &records)
	if err != nil {
		return gerror.NewErrStateCorrupt("state file is corrupt", err).
			EDetail("path", s.config.StateFilePath)
	}

	var (
		results  *multierror.Error
		registry = NewJobRegistry()
		loaded   = 0
	)
	for _, record := range records {
		job, err := s.jobFromRecord(record, registry, make(map[string]bool))
		if err != nil {
			s.Errorf("Skipping job %s from state file: %v", record.JobID, err)
			results = multierror.Append(results, err)
			continue
		}
		s.AddJob(job)
		loaded++
	}
	s.Infof("Loaded %d of %d job(s) from %s", loaded, len(records), s.config.StateFilePath)
	return results.ErrorOrNil()
}

// jobFromRecord reconstructs a Job and its dependency closure. The registry
// deduplicates dependencies shared between records, and visiting tracks the
// path of the current descent so that dependency cycles are rejected rather
// than recursed into forever.
func (s *Scheduler) jobFromRecord(record *jobRecord, registry *JobRegistry, visiting map[string]bool) (*Job, error) {
	if existing := registry.GetJob(record.JobID); existing != nil {
		return existing, nil
	}
	if visiting[record.JobID] {
		return nil, gerror.NewErrDependencyCycle("dependency cycle detected").
			EDetail("job_id", record.JobID)
	}
	visiting[record.JobID] = true
	defer delete(visiting, record.JobID)

	status, ok := ParseJobStatus(record.Status)
	if !ok {
		return nil, gerror.NewErrValidationFailed("invalid job status").
			EDetail("job_id", record.JobID).
			EDetail("status", record.Status)
	}

	var dependencies []*Job
	for _, depRecord := range record.Dependencies {
		dep, err := s.jobFromRecord(depRecord, registry, visiting)
		if err != nil {
			return nil, errors.Wrapf(err, "error rebuilding dependency of job %s", record.JobID)
		}
		dependencies = append(dependencies, dep)
	}

	job, err := s.NewJob(JobConfig{
		ID:             record.JobID,
		FuncName:       record.FuncName,
		Args:           record.Args,
		Kwargs:         record.Kwargs,
		StartAt:        secondsToTime(record.StartAt),
		MaxWorkingTime: secondsToDuration(record.MaxWorkingTime),
		MaxTries:       record.MaxTries,
		Dependencies:   dependencies,
	})
	if err != nil {
		return nil, err
	}
	job.Status = status
	job.CurrentTries = record.CurrentTries

	registry.RegisterJob(job)
	return job, nil
}
