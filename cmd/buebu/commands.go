package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dori/buebu/internal/app"
	"github.com/dori/buebu/internal/model"
	"github.com/spf13/cobra"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate a blueprint and save it as a project",
		Long: `Generate streams a blueprint for the given app description to stdout and
saves it as a new project. Ctrl+C stops the generation without saving.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")

			application, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			onChunk := func(chunk string) {
				if !quiet {
					fmt.Fprint(out, chunk)
				}
			}

			project, err := application.Generate(ctx, strings.Join(args, " "), onChunk)
			if !quiet {
				fmt.Fprintln(out)
			}
			if errors.Is(err, app.ErrCanceled) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Generation stopped")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Saved: %s (%s)\n", project.Title, shortID(project.ID))
			return nil
		},
	}

	cmd.Flags().BoolP("quiet", "q", false, "Do not print the blueprint while it streams")
	return cmd
}

func improveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "improve [prompt]",
		Short: "Rewrite a prompt into a more detailed one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := openApp(app.WithoutLock())
			if err != nil {
				return err
			}
			defer cleanup()

			improved, err := application.ImprovePrompt(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), improved)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved projects, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := openApp(app.WithoutLock())
			if err != nil {
				return err
			}
			defer cleanup()

			projects := application.Projects.Projects()
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects yet. Try: buebu generate \"a todo app with tags\"")
				return nil
			}
			for _, p := range projects {
				fmt.Fprintf(out, "%s  %s  %s\n", shortID(p.ID), p.CreatedAt.Local().Format("2006-01-02 15:04"), p.Title)
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [id|title]",
		Short: "Print a saved blueprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withPrompt, _ := cmd.Flags().GetBool("prompt")

			application, cleanup, err := openApp(app.WithoutLock())
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := application.FindProject(args[0])
			if err != nil {
				return err
			}
			printProject(cmd, p, withPrompt)
			return nil
		},
	}

	cmd.Flags().BoolP("prompt", "p", false, "Also print the prompt")
	return cmd
}

func renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename [id|title] [new title]",
		Short: "Rename a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := application.FindProject(args[0])
			if err != nil {
				return err
			}
			title, err := application.RenameProject(p.ID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed: %s\n", title)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [id|title]",
		Aliases: []string{"rm"},
		Short:   "Delete a project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := application.FindProject(args[0])
			if err != nil {
				return err
			}
			if err := application.DeleteProject(p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", p.Title)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "buebu v%s\n", version)
		},
	}
}

func printProject(cmd *cobra.Command, p model.Project, withPrompt bool) {
	out := cmd.OutOrStdout()
	if withPrompt {
		fmt.Fprintf(out, "Prompt: %s\n\n", p.Prompt)
	}
	fmt.Fprintln(out, p.Blueprint)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
