package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sazonarte/frontdesk/internal/api"
	"github.com/sazonarte/frontdesk/internal/app"
)

func newTablesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Manage dining tables",
		Long:  `List tables, change their status, add new ones or remove them.`,
	}
	cmd.AddCommand(
		newTablesListCmd(opts),
		newTablesStatusCmd(opts),
		newTablesCreateCmd(opts),
		newTablesDeleteCmd(opts),
	)
	return cmd
}

func newTablesListCmd(opts *rootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tables and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter api.TableStatus
			if status != "" {
				parsed, err := parseStatus(status)
				if err != nil {
					return err
				}
				filter = parsed
			}
			return opts.withSession(func(env *app.Env) error {
				ctx, cancel := commandContext(cmd, env)
				defer cancel()
				tables, err := load[[]api.Table](ctx, env.Tables.List)
				if err != nil {
					return fmt.Errorf("list tables: %w", err)
				}
				if filter != "" {
					tables = filterTables(tables, filter)
				}
				if len(tables) == 0 {
					cmd.Println("No tables found")
					return nil
				}
				printTables(cmd.OutOrStdout(), tables)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only tables with this status")
	return cmd
}

func newTablesStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [table-id] [status]",
		Short: "Set a table's status",
		Long: `Set a table's status to one of AVAILABLE, OCCUPIED or NEEDS_CLEANING.
Case and dashes are ignored, so "needs-cleaning" works too.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			return opts.withSession(func(env *app.Env) error {
				ctx, cancel := commandContext(cmd, env)
				defer cancel()
				table, err := env.Tables.UpdateStatus(ctx, id, status)
				if err != nil {
					return fmt.Errorf("update table %d: %s", id, api.Message(err, err.Error()))
				}
				cmd.Printf("Table %s is now %s\n", table.Number, table.Status)
				return nil
			})
		},
	}
}

func newTablesCreateCmd(opts *rootOptions) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "create [number]",
		Short: "Add a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := api.CreateTableInput{
				Number:   strings.TrimSpace(args[0]),
				Location: strings.TrimSpace(location),
			}
			return opts.withSession(func(env *app.Env) error {
				ctx, cancel := commandContext(cmd, env)
				defer cancel()
				table, err := env.Tables.Create(ctx, in)
				if err != nil {
					return fmt.Errorf("create table: %s", api.Message(err, err.Error()))
				}
				cmd.Printf("Created table %s (id %d)\n", table.Number, table.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", "", "where the table is, e.g. Terrace")
	return cmd
}

func newTablesDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete [table-id]",
		Short: "Remove a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := newPrompter(cmd).confirm(fmt.Sprintf("Delete table %d?", id))
				if err != nil {
					return err
				}
				if !ok {
					cmd.Println("Cancelled")
					return nil
				}
			}
			return opts.withSession(func(env *app.Env) error {
				ctx, cancel := commandContext(cmd, env)
				defer cancel()
				if err := env.Tables.Delete(ctx, id); err != nil {
					return fmt.Errorf("delete table %d: %s", id, api.Message(err, err.Error()))
				}
				cmd.Printf("Deleted table %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive number", arg)
	}
	return id, nil
}

func parseStatus(arg string) (api.TableStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(arg))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	status := api.TableStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q: must be one of %v", arg, api.TableStatuses)
	}
	return status, nil
}

func filterTables(tables []api.Table, status api.TableStatus) []api.Table {
	out := make([]api.Table, 0, len(tables))
	for _, t := range tables {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func printTables(w io.Writer, tables []api.Table) {
	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		updated := "-"
		if at := t.ParsedUpdatedAt(); !at.IsZero() {
			updated = at.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Number,
			string(t.Status),
			orDash(t.Location),
			updated,
		})
	}
	fmt.Fprintln(w, newTable("ID", "NUMBER", "STATUS", "LOCATION", "UPDATED").Rows(rows...).String())
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
