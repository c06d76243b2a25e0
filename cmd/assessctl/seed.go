package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/repositories"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create jobs, applications and category assessments",
}

var seedJobCmd = &cobra.Command{
	Use:   "job",
	Short: "Create a job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return seedJob(cmd)
	},
}

var seedApplicationCmd = &cobra.Command{
	Use:   "application",
	Short: "Create an application for a job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return seedApplication(cmd)
	},
}

var seedAssessmentCmd = &cobra.Command{
	Use:   "assessment",
	Short: "Open a category assessment for an application",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return seedAssessment(cmd)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedJobCmd, seedApplicationCmd, seedAssessmentCmd)

	seedJobCmd.Flags().StringP("title", "t", "", "job title (required)")
	seedJobCmd.Flags().StringSliceP("skills", "s", nil, "comma separated required skills")
	seedJobCmd.Flags().String("experience", "", "experience descriptor")
	_ = seedJobCmd.MarkFlagRequired("title")

	seedApplicationCmd.Flags().String("job", "", "job id (required)")
	seedApplicationCmd.Flags().String("candidate", "", "candidate id; generated when empty")
	seedApplicationCmd.Flags().String("resume", "", "resume reference: a local path or s3://bucket/key")
	seedApplicationCmd.Flags().String("document", "", "uploaded document id to use as the resume")
	seedApplicationCmd.MarkFlagsMutuallyExclusive("resume", "document")
	_ = seedApplicationCmd.MarkFlagRequired("job")

	seedAssessmentCmd.Flags().String("application", "", "application id (required)")
	_ = seedAssessmentCmd.MarkFlagRequired("application")
}

func seedJob(cmd *cobra.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	title, _ := cmd.Flags().GetString("title")
	skills, _ := cmd.Flags().GetStringSlice("skills")
	experience, _ := cmd.Flags().GetString("experience")
	if strings.TrimSpace(title) == "" {
		return errors.New("--title must not be blank")
	}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}

	job := &models.Job{
		ID:                   uuid.New(),
		Title:                strings.TrimSpace(title),
		RequiredSkills:       skills,
		ExperienceDescriptor: experience,
	}
	if err := repositories.NewJobRepository(db).Create(job); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), job.ID)
	return nil
}

func seedApplication(cmd *cobra.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	jobID, err := uuidFlag(cmd, "job")
	if err != nil {
		return err
	}
	candidateID := uuid.New()
	if raw, _ := cmd.Flags().GetString("candidate"); raw != "" {
		if candidateID, err = uuid.Parse(raw); err != nil {
			return fmt.Errorf("invalid --candidate: %w", err)
		}
	}
	resume, _ := cmd.Flags().GetString("resume")

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	if _, err := repositories.NewJobRepository(db).FindByID(jobID); err != nil {
		return err
	}
	if raw, _ := cmd.Flags().GetString("document"); raw != "" {
		docID, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid --document: %w", err)
		}
		doc, err := repositories.NewDocumentRepository(db).FindByID(docID)
		if err != nil {
			return err
		}
		resume = doc.StorageRef
	}

	application := &models.Application{
		ID:          uuid.New(),
		CandidateID: candidateID,
		JobID:       jobID,
		ResumeRef:   resume,
		Status:      models.ApplicationPending,
	}
	if err := repositories.NewApplicationRepository(db).Create(application); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), application.ID)
	return nil
}

func seedAssessment(cmd *cobra.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	applicationID, err := uuidFlag(cmd, "application")
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	if _, err := repositories.NewApplicationRepository(db).FindByID(applicationID); err != nil {
		return err
	}

	assessment := &models.CategoryAssessment{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		Status:        models.AssessmentPending,
	}
	if err := repositories.NewCategoryAssessmentRepository(db).Create(assessment); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), assessment.ID)
	return nil
}

func uuidFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return id, nil
}
