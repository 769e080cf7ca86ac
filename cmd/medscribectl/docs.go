package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func docsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage stored case documents",
	}
	cmd.AddCommand(docsAddCmd())
	cmd.AddCommand(docsListCmd())
	cmd.AddCommand(docsDeleteCmd())
	return cmd
}

func docsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a case document",
		Long: `Add a case document from a file or stdin.

Examples:
  medscribectl docs add --file case.txt --specialty Кардиология --diagnosis ИБС --tag стенокардия
  cat case.txt | medscribectl docs add --file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			content, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			metadata, err := docMetadata(cmd)
			if err != nil {
				return err
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			doc, err := c.AddDocument(cmd.Context(), content, metadata)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), doc)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", success("added"), doc.ID)
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", "-", "document file, - for stdin")
	cmd.Flags().String("specialty", "", "medical specialty")
	cmd.Flags().String("document-type", "", "document type")
	cmd.Flags().String("date", "", "document date")
	cmd.Flags().StringSlice("diagnosis", nil, "diagnosis (repeatable)")
	cmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	cmd.Flags().StringSlice("meta", nil, "extra metadata key=value (repeatable)")

	return cmd
}

func docMetadata(cmd *cobra.Command) (map[string]any, error) {
	md := make(map[string]any)
	for flag, key := range map[string]string{"specialty": "specialty", "document-type": "document_type", "date": "date"} {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			md[key] = v
		}
	}
	if v, _ := cmd.Flags().GetStringSlice("diagnosis"); len(v) > 0 {
		md["diagnoses"] = v
	}
	if v, _ := cmd.Flags().GetStringSlice("tag"); len(v) > 0 {
		md["tags"] = v
	}
	extra, _ := cmd.Flags().GetStringSlice("meta")
	pairs, err := parsePairs(extra)
	if err != nil {
		return nil, err
	}
	for k, v := range pairs {
		md[k] = v
	}
	return md, nil
}

func docsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			docs, err := c.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), docs)
			}

			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, "no documents")
				return nil
			}
			for _, d := range docs {
				fmt.Fprintf(out, "%s  %s\n", heading(d.ID), preview(d.Content, 80))
				if len(d.Metadata) > 0 {
					fmt.Fprintf(out, "    %s\n", formatMetadata(d.Metadata))
				}
			}
			return nil
		},
	}
}

func docsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := c.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", success("deleted"), args[0])
			return nil
		},
	}
}

// parsePairs splits key=value items.
func parsePairs(items []string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", item)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
