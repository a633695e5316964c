package main

import (
	"fmt"
	"os"

	"github.com/nanobot-go/nanobot/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// buildCronCmd exposes add/list/remove over the config document's
// cron.jobs list directly, independent of any running scheduler -- the
// scheduler only sees new jobs the next time the process starts; a running
// process does not reload the config.
func buildCronCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cron",
		Short: "manage scheduled jobs in the configuration document",
	}

	var (
		jobID, jobName, channel, chatID, content, every, at, cronExpr string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "add a message job to the configuration document",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := config.LoadRaw(configPath)
			if err != nil {
				raw = map[string]any{}
			}
			job := map[string]any{
				"id":      jobID,
				"name":    jobName,
				"enabled": true,
				"message": map[string]any{"channel": channel, "channelId": chatID, "content": content},
			}
			schedule := map[string]any{}
			switch {
			case cronExpr != "":
				schedule["cron"] = cronExpr
			case every != "":
				schedule["every"] = every
			case at != "":
				schedule["at"] = at
			default:
				return fmt.Errorf("one of --cron, --every or --at is required")
			}
			job["schedule"] = schedule

			cronSection, _ := raw["cron"].(map[string]any)
			if cronSection == nil {
				cronSection = map[string]any{}
			}
			jobs, _ := cronSection["jobs"].([]any)
			cronSection["jobs"] = append(jobs, job)
			raw["cron"] = cronSection

			return writeConfig(configPath, raw)
		},
	}
	addCmd.Flags().StringVar(&jobID, "id", "", "job id")
	addCmd.Flags().StringVar(&jobName, "name", "", "job name")
	addCmd.Flags().StringVar(&channel, "channel", "", "delivery channel")
	addCmd.Flags().StringVar(&chatID, "chat-id", "", "delivery chat id")
	addCmd.Flags().StringVar(&content, "content", "", "message content")
	addCmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression")
	addCmd.Flags().StringVar(&every, "every", "", "recurring interval, e.g. 1h")
	addCmd.Flags().StringVar(&at, "at", "", "one-time RFC3339 timestamp")
	_ = addCmd.MarkFlagRequired("id")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list jobs in the configuration document",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := config.LoadRaw(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cronSection, _ := raw["cron"].(map[string]any)
			jobs, _ := cronSection["jobs"].([]any)
			for _, j := range jobs {
				fmt.Printf("%v\n", j)
			}
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove [id]",
		Short: "remove a job from the configuration document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := config.LoadRaw(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cronSection, _ := raw["cron"].(map[string]any)
			jobs, _ := cronSection["jobs"].([]any)
			kept := jobs[:0]
			for _, j := range jobs {
				m, ok := j.(map[string]any)
				if ok && fmt.Sprintf("%v", m["id"]) == args[0] {
					continue
				}
				kept = append(kept, j)
			}
			cronSection["jobs"] = kept
			raw["cron"] = cronSection
			return writeConfig(configPath, raw)
		},
	}

	root.AddCommand(addCmd, listCmd, removeCmd)
	return root
}

func writeConfig(path string, raw map[string]any) error {
	out, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
