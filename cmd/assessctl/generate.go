package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/services"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a test for a job and print it as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return generate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("title", "t", "", "job title (required)")
	generateCmd.Flags().StringSliceP("skills", "s", nil, "comma separated required skills")
	generateCmd.Flags().String("experience", "", "experience descriptor")
	generateCmd.Flags().Int("attempt-seed", 1, "attempt number used to pick fallback questions")
	generateCmd.Flags().Bool("offline", false, "never call the generation service; use the fallback bank")
	generateCmd.Flags().Bool("answers", false, "include correct answers and explanations in the output")

	_ = generateCmd.MarkFlagRequired("title")
}

type generateOutput struct {
	Source    string   `json:"source"`
	Model     string   `json:"model,omitempty"`
	Attempts  int      `json:"attempts"`
	Topics    []string `json:"topics,omitempty"`
	Questions any      `json:"questions"`
}

func generate(cmd *cobra.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	flags := cmd.Flags()
	title, _ := flags.GetString("title")
	skills, _ := flags.GetStringSlice("skills")
	experience, _ := flags.GetString("experience")
	seed, _ := flags.GetInt("attempt-seed")
	offline, _ := flags.GetBool("offline")
	withAnswers, _ := flags.GetBool("answers")

	job := models.JobRequirement{
		Title:                strings.TrimSpace(title),
		RequiredSkills:       skills,
		ExperienceDescriptor: experience,
	}

	stack, err := services.NewGenerationStack(cfg, offline, log)
	if err != nil {
		return err
	}
	defer stack.Close() //nolint:errcheck

	var out generateOutput
	var questions []models.GeneratedQuestion

	if offline {
		if job.Title == "" {
			return services.ErrInvalidJobRequirement
		}
		questions = stack.Bank.Select(job, seed)
		out.Source = models.SourceFallback
		out.Topics = stack.Bank.Topics(job)
	} else {
		result, err := stack.Tests.Generate(cmd.Context(), job, nil)
		if err != nil {
			return err
		}
		questions = result.Questions
		out.Source = result.Source
		out.Model = result.Model
		out.Attempts = result.Attempts
	}

	if withAnswers {
		out.Questions = questions
	} else {
		out.Questions = models.ToPublicQuestions(questions)
	}

	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding test: %w", err)
	}
	log.Debug("test generated", zap.String("source", out.Source), zap.Int("questions", len(questions)))
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	return nil
}
