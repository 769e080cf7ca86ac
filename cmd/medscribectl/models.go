package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured generation backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			models, err := c.Models(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), models)
			}

			out := cmd.OutOrStdout()
			if len(models) == 0 {
				fmt.Fprintln(out, "no generation backends configured")
				return nil
			}
			types := make([]string, 0, len(models))
			for t := range models {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				m := models[t]
				where := "remote"
				if m.IsLocal {
					where = "local"
				}
				fmt.Fprintf(out, "%s  %s  %s\n", heading(t), m.Name, muted(where))
				if m.Error != "" {
					fmt.Fprintf(out, "    %s %s\n", failure("error:"), m.Error)
				}
				if len(m.AvailableModels) > 0 {
					fmt.Fprintf(out, "    %v\n", m.AvailableModels)
				}
			}
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show service health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			h, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), h)
			}

			out := cmd.OutOrStdout()
			status := success(h.Status)
			if h.Status != "ok" {
				status = failure(h.Status)
			}
			fmt.Fprintf(out, "status: %s\n", status)
			names := make([]string, 0, len(h.Checks))
			for name := range h.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %-10s %s\n", name, h.Checks[name])
			}
			return nil
		},
	}
}
