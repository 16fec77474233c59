package main

import (
	"context"
	"strings"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/urfave/cli/v3"
)

// JobsList lists recorded materialization jobs.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.jobRepository(ctx)
	if err != nil {
		return err
	}

	criteria := map[string]any{
		"state":              cmd.String("state"),
		"source_playlist_id": cmd.String("source"),
		"resumable":          cmd.Bool("resumable"),
		"limit":              cmd.Int("limit"),
	}
	jobs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if jobs == nil {
			jobs = []*models.MaterializeJob{}
		}
		return r.writeJSON(jobs, cmd.Bool("pretty"))
	}

	if len(jobs) == 0 {
		return r.writePlain("No jobs recorded.\n")
	}
	for _, job := range jobs {
		r.writeJobLine(job)
	}
	return nil
}

// JobsShow prints one job.
func (r *Runner) JobsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := jobArg(cmd)
	if err != nil {
		return err
	}
	repo, err := r.jobRepository(ctx)
	if err != nil {
		return err
	}

	job, err := repo.Get(id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(job, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Job " + job.ID())
	r.writePlain("Source: %s\n", job.SourcePlaylistID())
	r.writePlain("Target: %s\n", valueOr(job.TargetPlaylistID(), "(not created)"))
	r.writePlain("Title: %s\n", job.Title())
	r.writePlain("Sort: %s\n", job.Spec())
	r.writePlain("State: %s\n", job.State())
	r.writePlain("Progress: %d/%d\n", job.LastSuccessful(), job.ItemsTotal())
	if job.ErrorMessage() != "" {
		r.writePlain("Error: %s\n", job.ErrorMessage())
	}
	r.writePlain("Created: %s\n", job.CreatedAt().Local().Format(time.DateTime))
	if job.Resumable() {
		r.writePlain("\nRun `ytsort jobs resume %s` to insert the remaining videos.\n", job.ID())
	}
	return nil
}

// JobsResume inserts the remaining videos of a partially materialized playlist.
func (r *Runner) JobsResume(ctx context.Context, cmd *cli.Command) error {
	id, err := jobArg(cmd)
	if err != nil {
		return err
	}
	if err := r.openJobs(ctx); err != nil {
		return err
	}

	progress, stop := r.watch(false)
	result, err := r.engine.Resume(ctx, id, progress)
	stop()

	if err != nil {
		r.reportPartial(result)
		return err
	}
	return r.reportMaterialized(result)
}

// JobsDelete forgets a job. The remote playlist is left alone.
func (r *Runner) JobsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := jobArg(cmd)
	if err != nil {
		return err
	}
	repo, err := r.jobRepository(ctx)
	if err != nil {
		return err
	}
	if err := repo.Delete(id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted job %s\n", id)
}

func (r *Runner) writeJobLine(job *models.MaterializeJob) {
	marker := " "
	if job.Resumable() {
		marker = "↻"
	}
	r.writePlain("%s %-36s  %-16s  %4d/%-4d  %s → %s  %q\n",
		marker, job.ID(), job.State(), job.LastSuccessful(), job.ItemsTotal(),
		job.SourcePlaylistID(), valueOr(job.TargetPlaylistID(), "-"), job.Title())
}

func jobArg(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", shared.Faultf(shared.FaultValidation, "jobs", "%w: job id", shared.ErrMissingArgument)
	}
	return id, nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
