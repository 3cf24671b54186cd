package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/zwiggato/internal/cart"
	"github.com/roach88/zwiggato/internal/config"
	"github.com/roach88/zwiggato/internal/order"
)

// CartOptions holds flags for the cart commands.
type CartOptions struct {
	*RootOptions
	Path       string
	Restaurant int64
}

// CartView is the cart as the CLI prints it.
type CartView struct {
	Lines       []order.Line `json:"lines"`
	Subtotal    string       `json:"subtotal"`
	DeliveryFee string       `json:"delivery_fee"`
	Total       string       `json:"total"`
}

// NewCartCommand creates the cart command and its subcommands.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CartOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the local cart",
		Long: `Manage the cart kept in a local file between invocations.

The cart file defaults to $ZWIGGATO_CART or cart.json in the user config
directory. A damaged cart file is discarded and the cart starts empty.

Example:
  zwiggato cart add 1 --restaurant 1
  zwiggato cart inc 1
  zwiggato cart show
  zwiggato cart checkout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Path, "cart", "", "path to the cart file")

	cmd.AddCommand(newCartShowCommand(opts))
	cmd.AddCommand(newCartAddCommand(opts))
	cmd.AddCommand(newCartStepCommand(opts, "inc", "Add one to an item's quantity", 1))
	cmd.AddCommand(newCartStepCommand(opts, "dec", "Remove one from an item's quantity; at zero the line goes", -1))
	cmd.AddCommand(newCartRemoveCommand(opts))
	cmd.AddCommand(newCartClearCommand(opts))
	cmd.AddCommand(newCartCheckoutCommand(opts))

	return cmd
}

// open loads the configured cart file.
func (o *CartOptions) open(cmd *cobra.Command) (*cart.Cart, config.Config, *slog.Logger, error) {
	cfg, err := o.Config()
	if err != nil {
		return nil, cfg, nil, err
	}
	path := o.Path
	if path == "" {
		path = cfg.CartPath
	}
	logger := o.Logger(cfg, cmd.ErrOrStderr())
	storage := cart.NewFileStorage(path)
	c, err := cart.Open(storage, cfg.DeliveryFee, logger)
	if err != nil {
		return nil, cfg, nil, WrapExitError(ExitCommandError, "failed to open cart", err)
	}
	logger.Debug("cart opened", "path", storage.Path(), "lines", c.Len())
	return c, cfg, logger, nil
}

func viewOf(c *cart.Cart) CartView {
	t := c.Totals()
	return CartView{
		Lines:       c.Lines(),
		Subtotal:    t.Subtotal.StringFixed(2),
		DeliveryFee: t.DeliveryFee.StringFixed(2),
		Total:       t.Total.StringFixed(2),
	}
}

func renderCart(w io.Writer, v CartView) {
	if len(v.Lines) == 0 {
		fmt.Fprintln(w, "Cart is empty.")
		return
	}
	for _, l := range v.Lines {
		fmt.Fprintf(w, "%4d  %-28s %3d x %6.2f\n", l.ID, l.Name, l.Quantity, l.Price)
	}
	fmt.Fprintf(w, "Subtotal:     %s\n", v.Subtotal)
	fmt.Fprintf(w, "Delivery fee: %s\n", v.DeliveryFee)
	fmt.Fprintf(w, "Total:        %s\n", v.Total)
}

func showCart(o *CartOptions, cmd *cobra.Command, c *cart.Cart) error {
	v := viewOf(c)
	return o.formatter(cmd).Success(v, func(w io.Writer) { renderCart(w, v) })
}

func newCartShowCommand(opts *CartOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the cart and its totals",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			return showCart(opts, cmd, c)
		},
	}
}

func newCartAddCommand(opts *CartOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <item-id>",
		Short: "Add a menu item to the cart",
		Long: `Add one of a menu item to the cart. The item's name and price are looked
up on the restaurant's menu; adding an item already in the cart increases its
quantity.

Example:
  zwiggato cart add 3 --restaurant 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseIDArg(args[0], "item id")
			if err != nil {
				return err
			}
			c, cfg, logger, err := opts.open(cmd)
			if err != nil {
				return err
			}
			out := opts.formatter(cmd)
			api, err := opts.apiClient(cfg, logger)
			if err != nil {
				return err
			}

			out.VerboseLog("GET /restaurants/%d/menu", opts.Restaurant)
			menu, err := api.Menu(cmd.Context(), opts.Restaurant)
			if err != nil {
				return out.Fail("failed to fetch menu", err)
			}
			for _, it := range menu {
				if it.ID != itemID {
					continue
				}
				if err := c.AddItem(cart.Item{ID: it.ID, Name: it.Name, Price: it.Price}); err != nil {
					return WrapExitError(ExitCommandError, "failed to add item", err)
				}
				return showCart(opts, cmd, c)
			}
			return out.Fail(fmt.Sprintf("item %d is not on the menu of restaurant %d", itemID, opts.Restaurant), nil)
		},
	}

	cmd.Flags().Int64Var(&opts.Restaurant, "restaurant", 0, "restaurant the item belongs to (required)")
	_ = cmd.MarkFlagRequired("restaurant")

	return cmd
}

func newCartStepCommand(opts *CartOptions, use, short string, delta int) *cobra.Command {
	return &cobra.Command{
		Use:           use + " <item-id>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseIDArg(args[0], "item id")
			if err != nil {
				return err
			}
			c, _, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			found, err := c.ChangeQuantity(itemID, delta)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to update cart", err)
			}
			if !found {
				return opts.formatter(cmd).Fail(fmt.Sprintf("item %d is not in the cart", itemID), nil)
			}
			return showCart(opts, cmd, c)
		},
	}
}

func newCartRemoveCommand(opts *CartOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <item-id>",
		Short:         "Remove an item from the cart",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseIDArg(args[0], "item id")
			if err != nil {
				return err
			}
			c, _, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			found, err := c.Remove(itemID)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to update cart", err)
			}
			if !found {
				return opts.formatter(cmd).Fail(fmt.Sprintf("item %d is not in the cart", itemID), nil)
			}
			return showCart(opts, cmd, c)
		},
	}
}

func newCartClearCommand(opts *CartOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Empty the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			if err := c.Clear(); err != nil {
				return WrapExitError(ExitCommandError, "failed to clear cart", err)
			}
			return showCart(opts, cmd, c)
		},
	}
}

func newCartCheckoutCommand(opts *CartOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Long: `Submit the cart as an order. The cart is emptied only after the server
accepts the order; on any failure it is kept for a retry.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, logger, err := opts.open(cmd)
			if err != nil {
				return err
			}
			out := opts.formatter(cmd)
			api, err := opts.apiClient(cfg, logger)
			if err != nil {
				return err
			}

			out.VerboseLog("POST /orders (%d lines, total %s)", c.Len(), c.Totals().Total.StringFixed(2))
			placed, err := api.Checkout(cmd.Context(), c)
			if err != nil {
				return out.Fail("checkout failed", err)
			}
			return out.Success(placed, func(w io.Writer) {
				fmt.Fprintln(w, "Order placed.")
				renderOrder(w, placed)
			})
		},
	}
}
