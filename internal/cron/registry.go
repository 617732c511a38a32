package cron

import (
	"context"
	"slices"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in the order they run. Job names must be unique.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register reports false for nil jobs and for names already taken.
func (r *Registry) Register(job Job) bool {
	if job == nil {
		return false
	}
	name := job.Name()
	if slices.ContainsFunc(r.jobs, func(j Job) bool { return j.Name() == name }) {
		return false
	}
	r.jobs = append(r.jobs, job)
	return true
}

// Jobs returns a copy the caller may modify.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}
