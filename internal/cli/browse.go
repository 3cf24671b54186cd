package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/zwiggato/internal/order"
)

// NewRestaurantsCommand creates the restaurants command.
func NewRestaurantsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restaurants",
		Short: "List restaurants",
		Long: `List every restaurant in the catalog.

Example:
  zwiggato restaurants
  zwiggato restaurants --api http://localhost:9090 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.Config()
			if err != nil {
				return err
			}
			out := rootOpts.formatter(cmd)
			c, err := rootOpts.apiClient(cfg, rootOpts.Logger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			out.VerboseLog("GET /restaurants")
			list, err := c.Restaurants(cmd.Context())
			if err != nil {
				return out.Fail("failed to list restaurants", err)
			}
			return out.Success(list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "No restaurants.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tCUISINE")
				for _, r := range list {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Name, r.Cuisine)
				}
				tw.Flush()
			})
		},
	}
}

// NewMenuCommand creates the menu command.
func NewMenuCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "menu <restaurant-id>",
		Short: "Show a restaurant's menu",
		Long: `Show the menu items of one restaurant.

An unknown restaurant has an empty menu.

Example:
  zwiggato menu 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0], "restaurant id")
			if err != nil {
				return err
			}
			cfg, err := rootOpts.Config()
			if err != nil {
				return err
			}
			out := rootOpts.formatter(cmd)
			c, err := rootOpts.apiClient(cfg, rootOpts.Logger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			out.VerboseLog("GET /restaurants/%d/menu", id)
			items, err := c.Menu(cmd.Context(), id)
			if err != nil {
				return out.Fail("failed to fetch menu", err)
			}
			return out.Success(items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, "No menu items.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPRICE")
				for _, it := range items {
					fmt.Fprintf(tw, "%d\t%s\t%.2f\n", it.ID, it.Name, it.Price)
				}
				tw.Flush()
			})
		},
	}
}

// NewOrdersCommand creates the orders command.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "orders [order-id]",
		Short: "List orders, newest first, or show one order",
		Long: `List every placed order, newest first. With an id, show that order.

Example:
  zwiggato orders
  zwiggato orders 3 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.Config()
			if err != nil {
				return err
			}
			out := rootOpts.formatter(cmd)
			c, err := rootOpts.apiClient(cfg, rootOpts.Logger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			if len(args) == 1 {
				id, err := parseIDArg(args[0], "order id")
				if err != nil {
					return err
				}
				out.VerboseLog("GET /orders/%d", id)
				o, err := c.Order(cmd.Context(), id)
				if err != nil {
					return out.Fail("failed to fetch order", err)
				}
				return out.Success(o, func(w io.Writer) { renderOrder(w, o) })
			}

			out.VerboseLog("GET /orders")
			list, err := c.Orders(cmd.Context())
			if err != nil {
				return out.Fail("failed to list orders", err)
			}
			return out.Success(list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "No orders.")
					return
				}
				for i, o := range list {
					if i > 0 {
						fmt.Fprintln(w)
					}
					renderOrder(w, o)
				}
			})
		},
	}
}

func renderOrder(w io.Writer, o order.Order) {
	fmt.Fprintf(w, "Order #%d  %s  total %.2f\n", o.ID, o.CreatedAt.UTC().Format(time.RFC3339), o.Total)
	for _, l := range o.Items {
		fmt.Fprintf(w, "  %d x %s @ %.2f\n", l.Quantity, l.Name, l.Price)
	}
}

func parseIDArg(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("%s must be an integer, got %q", what, arg))
	}
	return id, nil
}
