package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sazonarte/frontdesk/internal/api"
	"github.com/sazonarte/frontdesk/internal/app"
	"github.com/sazonarte/frontdesk/internal/query"
)

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "Browse menu categories",
	}
	cmd.AddCommand(newCategoriesListCmd(opts), newCategoriesDeleteCmd(opts))
	return cmd
}

func newCategoriesListCmd(opts *rootOptions) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List menu categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(func(env *app.Env) error {
				ctx, cancel := commandContext(cmd, env)
				defer cancel()
				open := env.Categories.List
				if name := strings.TrimSpace(search); name != "" {
					open = func(o ...query.Option) *query.Subscription {
						return env.Categories.Search(name, o...)
					}
				}
				categories, err := load[[]api.MenuCategory](ctx, open)
				if err != nil {
					return fmt.Errorf("list categories: %w", err)
				}
				if len(categories) == 0 {
					if search != "" {
						cmd.Printf("No categories match %q\n", search)
					} else {
						cmd.Println("No categories found")
					}
					return nil
				}
				printCategories(cmd.OutOrStdout(), categories)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "only categories whose name matches")
	return cmd
}

func newCategoriesDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete [category-id]",
		Short: "Remove a menu category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := newPrompter(cmd).confirm(fmt.Sprintf("Delete category %d?", id))
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
				if err := env.Categories.Delete(ctx, id); err != nil {
					return fmt.Errorf("delete category %d: %s", id, api.Message(err, err.Error()))
				}
				cmd.Printf("Deleted category %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newItemsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item"},
		Short:   "Browse menu items",
	}
	cmd.AddCommand(newItemsListCmd(opts), newItemsAvailableCmd(opts))
	return cmd
}

func newItemsListCmd(opts *rootOptions) *cobra.Command {
	var (
		category      int64
		availableOnly bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List menu items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(func(env *app.Env) error {
				ctx, cancel := commandContext(cmd, env)
				defer cancel()
				items, err := load[[]api.MenuItem](ctx, env.Items.List)
				if err != nil {
					return fmt.Errorf("list items: %w", err)
				}
				items = filterItems(items, category, availableOnly)
				if len(items) == 0 {
					cmd.Println("No items found")
					return nil
				}
				printItems(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&category, "category", 0, "only items in this category id")
	cmd.Flags().BoolVar(&availableOnly, "available", false, "only items that can be ordered")
	return cmd
}

func newItemsAvailableCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "available [item-id] [on|off]",
		Short: "Mark an item as available or sold out",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			available, err := parseSwitch(args[1])
			if err != nil {
				return err
			}
			return opts.withSession(func(env *app.Env) error {
				ctx, cancel := commandContext(cmd, env)
				defer cancel()
				item, err := env.Items.SetAvailable(ctx, id, available)
				if err != nil {
					return fmt.Errorf("update item %d: %s", id, api.Message(err, err.Error()))
				}
				cmd.Printf("%s is now %s\n", item.Name, availabilityLabel(item.IsAvailable))
				return nil
			})
		},
	}
}

func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "yes", "true", "available":
		return true, nil
	case "off", "no", "false", "unavailable", "sold-out":
		return false, nil
	}
	return false, fmt.Errorf("invalid value %q: use on or off", arg)
}

func availabilityLabel(available bool) string {
	if available {
		return "available"
	}
	return "unavailable"
}

func filterItems(items []api.MenuItem, category int64, availableOnly bool) []api.MenuItem {
	if category <= 0 && !availableOnly {
		return items
	}
	out := make([]api.MenuItem, 0, len(items))
	for _, it := range items {
		if category > 0 && it.CategoryID != category {
			continue
		}
		if availableOnly && !it.IsAvailable {
			continue
		}
		out = append(out, it)
	}
	return out
}

func printCategories(w io.Writer, categories []api.MenuCategory) {
	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			strconv.Itoa(c.Order),
			strconv.Itoa(len(c.Items)),
			orDash(c.Description),
		})
	}
	fmt.Fprintln(w, newTable("ID", "NAME", "ORDER", "ITEMS", "DESCRIPTION").Rows(rows...).String())
}

func printItems(w io.Writer, items []api.MenuItem) {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		kind := "dish"
		if it.IsExtra {
			kind = "extra"
		}
		rows = append(rows, []string{
			strconv.FormatInt(it.ID, 10),
			it.Name,
			it.Price,
			strconv.FormatInt(it.CategoryID, 10),
			kind,
			availabilityLabel(it.IsAvailable),
		})
	}
	fmt.Fprintln(w, newTable("ID", "NAME", "PRICE", "CATEGORY", "KIND", "STATUS").Rows(rows...).String())
}
