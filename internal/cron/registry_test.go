package cron

import (
	"context"
	"testing"
)

type noopJob struct {
	name string
}

func (j *noopJob) Name() string { return j.name }

func (j *noopJob) Run(_ context.Context) error { return nil }

func TestNewRegistrySkipsNilJobs(t *testing.T) {
	registry := NewRegistry(&noopJob{name: "a"}, nil, &noopJob{name: "b"})

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Name() != "a" || jobs[1].Name() != "b" {
		t.Fatalf("unexpected job order: %s, %s", jobs[0].Name(), jobs[1].Name())
	}
}

func TestRegistryRegisterAppends(t *testing.T) {
	registry := NewRegistry()
	registry.Register(nil)
	registry.Register(&noopJob{name: "expiry"})

	jobs := registry.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Name() != "expiry" {
		t.Fatalf("unexpected job name: %s", jobs[0].Name())
	}
}

func TestRegistryJobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(&noopJob{name: "a"}, &noopJob{name: "b"})

	jobs := registry.Jobs()
	jobs[0] = &noopJob{name: "mutated"}

	if registry.Jobs()[0].Name() != "a" {
		t.Fatalf("mutating the returned slice changed the registry")
	}
}
