package main

import (
	"fmt"
	"io"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/spf13/cobra"

	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/benjamonnguyen/pomomo-focus/sqlite"
)

func taskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage focus tasks",
	}
	cmd.AddCommand(taskAddCmd(a))
	cmd.AddCommand(taskShowCmd(a))
	return cmd
}

func taskAddCmd(a *app) *cobra.Command {
	var (
		user     string
		estimate int
	)
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task and print its ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := a.taskRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			task, err := repo.InsertTask(cmd.Context(), pomomo.TaskRecord{
				UserID:         pomomo.UserID(user),
				Title:          args[0],
				EstimatedCount: estimate,
			})
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "owner of the task")
	cmd.Flags().IntVarP(&estimate, "estimate", "n", 1, "focus sessions the task should take")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func taskShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := a.taskRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			task, err := repo.GetTask(cmd.Context(), pomomo.TaskID(args[0]))
			if err != nil {
				return fmt.Errorf("failed to get task %s: %w", args[0], err)
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
}

func (a *app) taskRepo() (*sqlite.TaskRepo, func(), error) {
	db, err := a.openDB()
	if err != nil {
		return nil, nil, err
	}
	_, dbGetter := txStdLib.NewTransactor(db, txStdLib.NestedTransactionsSavepoints)
	return sqlite.NewTaskRepo(dbGetter, a.l), func() { _ = db.Close() }, nil
}

func printTask(w io.Writer, task pomomo.Task) {
	fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n", task.ID, task.Title, task.UsedCount, task.EstimatedCount, task.Status)
}
