package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/docmeta/internal/category"
	"github.com/lehigh-university-libraries/docmeta/internal/database"
	"github.com/spf13/cobra"
)

func newCategoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect and maintain the category tree",
	}

	cmd.AddCommand(newCategoriesListCmd(a))
	cmd.AddCommand(newCategoriesResolveCmd(a))
	cmd.AddCommand(newCategoriesActiveCmd(a, "activate", true))
	cmd.AddCommand(newCategoriesActiveCmd(a, "deactivate", false))
	cmd.AddCommand(newCategoriesOrphansCmd(a))
	cmd.AddCommand(newCategoriesPruneCmd(a))

	return cmd
}

// withCategories opens the database and runs fn with a category service
func (a *app) withCategories(fn func(*category.Service) error) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(category.NewService(db))
}

func newCategoriesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the category tree in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCategories(func(svc *category.Service) error {
				tree, err := svc.Tree(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, c := range tree.Ordered() {
					depth := len(tree.Ancestors(c.ID))
					status := ""
					if !c.Active {
						status = " (inactive)"
					}
					fmt.Fprintf(out, "%5d  %s%s%s\t%s\n", c.ID, strings.Repeat("  ", depth), c.Name, status, tree.Path(c.ID))
				}
				return nil
			})
		},
	}
}

func newCategoriesResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve PATH",
		Short: "Look up a category by its slash separated slug path",
		Example: `  docmeta categories resolve significance/short/water-supply`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCategories(func(svc *category.Service) error {
				chain, err := svc.FromSlugs(cmd.Context(), strings.Split(strings.Trim(args[0], "/"), "/"))
				if err != nil {
					return err
				}
				names := make([]string, 0, len(chain))
				for _, c := range chain {
					names = append(names, c.Name)
				}
				last := chain[len(chain)-1]
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", last.ID, strings.Join(names, " / "))
				return nil
			})
		},
	}
}

func newCategoriesActiveCmd(a *app, use string, active bool) *cobra.Command {
	short := "Mark a category active"
	if !active {
		short = "Mark a category and all of its descendants inactive"
	}
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q: %w", args[0], err)
			}
			return a.withCategories(func(svc *category.Service) error {
				return svc.SetActive(cmd.Context(), uint(id), active)
			})
		},
	}
}

func newCategoriesOrphansCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List documents that belong to no category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCategories(func(svc *category.Service) error {
				docs, err := svc.OrphanDocuments(cmd.Context())
				if err != nil {
					return err
				}
				for _, d := range docs {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", d.ID, d.Name, d.SourcePath)
				}
				return nil
			})
		},
	}
}

func newCategoriesPruneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete categories that hold no documents and have no children",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCategories(func(svc *category.Service) error {
				removed, err := svc.Prune(cmd.Context())
				for _, c := range removed {
					fmt.Fprintf(cmd.OutOrStdout(), "removed %d\t%s\n", c.ID, c.Name)
				}
				return err
			})
		},
	}
}
