package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"foodkart/internal/checkout"
	"foodkart/internal/model"
	"foodkart/internal/payment"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func cartCommand() *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "show or change the cart",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "print the cart",
				Action: withSession(cartShow),
			},
			{
				Name:  "add",
				Usage: "add an item from a restaurant's menu",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "restaurant", Aliases: []string{"r"}, Required: true},
					&cli.StringFlag{Name: "item", Aliases: []string{"i"}, Required: true},
					&cli.IntFlag{Name: "qty", Aliases: []string{"q"}, Value: 1},
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "replace a cart from another restaurant without asking"},
				},
				Action: withSession(cartAdd),
			},
			{
				Name:  "set",
				Usage: "set the quantity of an item, 0 removes it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "item", Aliases: []string{"i"}, Required: true},
					&cli.IntFlag{Name: "qty", Aliases: []string{"q"}, Required: true},
				},
				Action: withSession(func(c *cli.Context, s *session) error {
					if err := s.store.SetQuantity(c.String("item"), c.Int("qty")); err != nil {
						return err
					}
					return printCart(s.out, s)
				}),
			},
			{
				Name:  "remove",
				Usage: "remove an item",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "item", Aliases: []string{"i"}, Required: true},
				},
				Action: withSession(func(c *cli.Context, s *session) error {
					if err := s.store.RemoveLine(c.String("item")); err != nil {
						return err
					}
					return printCart(s.out, s)
				}),
			},
			{
				Name:  "clear",
				Usage: "empty the cart",
				Action: withSession(func(c *cli.Context, s *session) error {
					s.store.Clear()
					fmt.Fprintln(s.out, "cart cleared")
					return nil
				}),
			},
		},
	}
}

func cartShow(c *cli.Context, s *session) error {
	return printCart(s.out, s)
}

func cartAdd(c *cli.Context, s *session) error {
	restaurant, err := s.restaurants.Get(c.Context, c.String("restaurant"))
	if err != nil {
		return err
	}
	item, err := s.restaurants.MenuItem(c.Context, restaurant.ID, c.String("item"))
	if err != nil {
		return err
	}
	if !item.IsAvailable {
		return fmt.Errorf("%s is currently unavailable", item.Name)
	}

	confirm := func(current, requested model.Restaurant) bool {
		if c.Bool("yes") {
			return true
		}
		return ask(c.App.Reader, s.out, fmt.Sprintf(
			"Your cart has items from %s. Discard them and start a new cart from %s? [y/N] ",
			current.Name, requested.Name))
	}

	if err := s.store.AddLine(*restaurant, *item, c.Int("qty"), confirm); err != nil {
		if errors.Is(err, model.ErrRestaurantMismatch) {
			fmt.Fprintln(s.out, "cart unchanged")
			return nil
		}
		return err
	}
	return printCart(s.out, s)
}

func checkoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "checkout",
		Usage: "place an order for the cart",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address-id", Required: true},
			&cli.StringFlag{Name: "line1", Required: true},
			&cli.StringFlag{Name: "line2"},
			&cli.StringFlag{Name: "city", Required: true},
			&cli.StringFlag{Name: "state", Required: true},
			&cli.StringFlag{Name: "zip", Required: true},
			&cli.StringFlag{Name: "method", Value: string(model.PaymentCash), Usage: "cash, upi, card, netbanking or wallet"},
			&cli.StringFlag{Name: "phone", Usage: "payer phone, required for online payment"},
			&cli.StringFlag{Name: "note", Usage: "special instructions"},
		},
		Action: withSession(runCheckout),
	}
}

func runCheckout(c *cli.Context, s *session) error {
	coordinator, err := s.coordinator(c.Context)
	if err != nil {
		return err
	}

	outcome, err := coordinator.Checkout(c.Context, checkout.Request{
		Address: &model.Address{
			ID:      c.String("address-id"),
			Line1:   c.String("line1"),
			Line2:   c.String("line2"),
			City:    c.String("city"),
			State:   c.String("state"),
			ZipCode: c.String("zip"),
		},
		PaymentMethod:       model.PaymentMethod(c.String("method")),
		PayerPhone:          c.String("phone"),
		SpecialInstructions: c.String("note"),
	})
	if errors.Is(err, model.ErrUnreconciledPayment) {
		fmt.Fprintln(s.out, "A payment from an earlier checkout was received but its order was not created.")
		fmt.Fprintln(s.out, "Run `cartctl order retry` to create it. Do not pay again.")
		return err
	}
	if err != nil {
		return err
	}

	if outcome.Order != nil {
		printOrder(s.out, outcome.Order)
		return nil
	}

	poller := outcome.Poller
	link := poller.Link()
	fmt.Fprintf(s.out, "Pay %s at %s\n", link.Amount.StringFixed(2), link.URL)
	if link.QRData != "" {
		fmt.Fprintf(s.out, "QR: %s\n", link.QRData)
	}
	fmt.Fprintf(s.out, "Link expires at %s. Waiting for payment, Ctrl-C to cancel.\n", link.ExpiresAt.Local().Format("15:04:05"))

	if err := poller.Begin(); err != nil {
		return err
	}

	order, cancelled, err := awaitPayment(c.Context, poller)
	if cancelled {
		fmt.Fprintln(s.out, "payment cancelled")
		return nil
	}

	var fe *payment.FinalizeError
	switch {
	case errors.As(err, &fe):
		fmt.Fprintf(s.out, "Payment %s of %s was received but the order could not be created.\n",
			fe.Evidence.LinkID, fe.Evidence.AmountPaid.StringFixed(2))
		fmt.Fprintln(s.out, "Your cart is kept and the payment has been recorded. Run `cartctl order retry` to create the order. Do not pay again.")
		return err
	case err != nil:
		return err
	}

	printOrder(s.out, order)
	return nil
}

// paymentWaiter is the part of *payment.Poller awaitPayment needs.
type paymentWaiter interface {
	Wait(ctx context.Context) (*model.Order, error)
	Cancel() bool
}

// awaitPayment waits for the attempt to finish. When ctx ends first the
// attempt is cancelled, unless the payment already went through, in which
// case its order is still waited for.
func awaitPayment(ctx context.Context, p paymentWaiter) (order *model.Order, cancelled bool, err error) {
	order, err = p.Wait(ctx)
	if err == nil || ctx.Err() == nil {
		return order, false, err
	}
	if p.Cancel() {
		return nil, true, nil
	}
	order, err = p.Wait(context.WithoutCancel(ctx))
	return order, false, err
}

func orderCommand() *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "look up orders",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "print an order",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
				},
				Action: withSession(func(c *cli.Context, s *session) error {
					id, err := uuid.Parse(c.String("id"))
					if err != nil {
						return fmt.Errorf("invalid order id: %w", err)
					}
					order, err := s.orders.Get(c.Context, id)
					if err != nil {
						return err
					}
					printOrder(s.out, order)
					return nil
				}),
			},
			{
				Name:   "retry",
				Usage:  "create the order for a paid checkout whose order failed",
				Action: withSession(orderRetry),
			},
		},
	}
}

func orderRetry(c *cli.Context, s *session) error {
	coordinator, err := s.coordinator(c.Context)
	if err != nil {
		return err
	}

	order, err := coordinator.RetryFinalize(c.Context)
	if errors.Is(err, checkout.ErrNothingToRetry) {
		fmt.Fprintln(s.out, "nothing to retry")
		return nil
	}
	var fe *payment.FinalizeError
	if errors.As(err, &fe) {
		fmt.Fprintf(s.out, "The order for payment %s still could not be created. Try again later.\n", fe.Evidence.LinkID)
		return err
	}
	if err != nil {
		return err
	}

	if order.PaymentLinkID != nil {
		if err := s.evidence.Delete(c.Context, *order.PaymentLinkID); err != nil {
			s.logger.Warn().Err(err).Str("link_id", *order.PaymentLinkID).Msg("failed to drop reconciled evidence")
		}
	}
	printOrder(s.out, order)
	return nil
}

func paymentCommand() *cli.Command {
	return &cli.Command{
		Name:  "payment",
		Usage: "sandbox payment tools",
		Subcommands: []*cli.Command{
			{
				Name:  "pay",
				Usage: "simulate paying a sandbox payment link",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "link", Required: true},
					&cli.StringFlag{Name: "method", Value: string(model.PaymentUPI)},
				},
				Action: withSession(func(c *cli.Context, s *session) error {
					report, err := s.payments.MarkPaid(c.Context, c.String("link"), c.String("method"))
					if err != nil {
						return err
					}
					fmt.Fprintf(s.out, "%s: %s (paid %s)\n", report.LinkID, report.Status, report.AmountPaid.StringFixed(2))
					return nil
				}),
			},
			{
				Name:   "evidence",
				Usage:  "list payments recorded on this device that have no order yet",
				Action: withSession(paymentEvidence),
			},
		},
	}
}

func paymentEvidence(c *cli.Context, s *session) error {
	records, err := s.evidence.ListByOwner(c.Context, s.cfg.UserID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(s.out, "no unreconciled payments")
		return nil
	}

	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINK\tPAYMENT\tAMOUNT\tRECORDED\tREASON")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Evidence.LinkID, r.Evidence.Payment.PaymentID,
			r.Evidence.AmountPaid.StringFixed(2), r.RecordedAt.Local().Format(time.DateTime), r.FailureReason)
	}
	return tw.Flush()
}

func printCart(w io.Writer, s *session) error {
	snap := s.store.Snapshot()
	if snap.IsEmpty() {
		fmt.Fprintln(w, "cart is empty")
		return nil
	}

	fmt.Fprintf(w, "%s\n", snap.Restaurant.Name)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tQTY\tPRICE\tTOTAL")
	for _, l := range snap.Lines {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", l.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.LineTotal().StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	totals := checkout.ComputeTotals(snap.Lines, *snap.Restaurant, s.cfg.TaxRate)
	fmt.Fprintf(w, "subtotal %s  delivery %s  tax %s  total %s\n",
		totals.Subtotal.StringFixed(2), totals.DeliveryFee.StringFixed(2),
		totals.Tax.StringFixed(2), totals.Total.StringFixed(2))
	if totals.Subtotal.LessThan(snap.Restaurant.MinOrder) {
		fmt.Fprintf(w, "minimum order is %s\n", snap.Restaurant.MinOrder.StringFixed(2))
	}
	return nil
}

func printOrder(w io.Writer, o *model.Order) {
	fmt.Fprintf(w, "Order %s (%s) %s\n", o.OrderNumber, o.ID, o.Status)
	for _, it := range o.Items {
		fmt.Fprintf(w, "  %d x %s\n", it.Quantity, it.Name)
	}
	fmt.Fprintf(w, "Total %s, paid by %s\n", o.Total.StringFixed(2), o.PaymentMethod)
}

// ask reads a yes/no answer. Anything but y or yes is a no.
func ask(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
