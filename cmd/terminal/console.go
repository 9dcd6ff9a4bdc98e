package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adoniasgoesw/filazero/internal/catalog"
	"github.com/adoniasgoesw/filazero/internal/complements"
	"github.com/adoniasgoesw/filazero/internal/lifecycle"
	"github.com/adoniasgoesw/filazero/internal/pricing"
)

const helpText = `commands:
  show                                 items, totals and payments
  add <product> [qty] [complement=n ...]
  remove <product>                     drop the last pending unit
  discount <value>[%]   surcharge <value>[%]
  name <text>           client <id|none>
  save                  refresh
  pay                                  open payment collection
  alloc <method> [amount]              add a payment allocation
  amount <n> <value>    drop <n>       edit or remove allocation n
  commit                               record payments
  finalize [print]      cancel
  quit`

// console reads operator commands line by line and applies them to one session.
type console struct {
	session *lifecycle.Session
	catalog catalog.Lookup
	out     io.Writer
}

func newConsole(session *lifecycle.Session, lookup catalog.Lookup, out io.Writer) *console {
	return &console{session: session, catalog: lookup, out: out}
}

// Run processes commands until quit, end of input, a closed order or ctx cancellation.
func (c *console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(c.out, "%s> ", c.session.Slot().Code())
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := c.exec(ctx, fields[0], fields[1:]); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		if c.session.State().IsTerminal() {
			fmt.Fprintf(c.out, "order %s\n", c.session.State())
			return nil
		}
	}
}

func (c *console) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(c.out, helpText)
		return nil
	case "show":
		c.show()
		return nil
	case "add":
		return c.add(ctx, args)
	case "remove":
		productID, err := argUUID(args, 0, "product")
		if err != nil {
			return err
		}
		return c.report(c.session.RemoveLast(ctx, productID))
	case "discount", "surcharge":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <value>[%%]", cmd)
		}
		value, pct, err := parseAdjustment(args[0])
		if err != nil {
			return err
		}
		if cmd == "discount" {
			return c.report(c.session.SetDiscount(value, pct))
		}
		return c.report(c.session.SetSurcharge(value, pct))
	case "name":
		return c.report(c.session.SetDisplayName(strings.Join(args, " ")))
	case "client":
		if len(args) == 1 && args[0] == "none" {
			return c.report(c.session.SetClient(ctx, nil))
		}
		clientID, err := argUUID(args, 0, "client")
		if err != nil {
			return err
		}
		return c.report(c.session.SetClient(ctx, &clientID))
	case "save":
		return c.report(c.session.Save(ctx))
	case "refresh":
		return c.report(c.session.Refresh(ctx))
	case "pay":
		return c.report(c.session.OpenPayment(ctx))
	case "alloc":
		return c.allocate(ctx, args)
	case "amount":
		localID, err := c.allocationArg(args)
		if err != nil {
			return err
		}
		if len(args) != 2 {
			return fmt.Errorf("usage: amount <n> <value>")
		}
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		return c.report(c.session.UpdateAllocation(ctx, localID, amount))
	case "drop":
		localID, err := c.allocationArg(args)
		if err != nil {
			return err
		}
		return c.report(c.session.RemoveAllocation(ctx, localID))
	case "commit":
		return c.report(c.session.CommitPayments(ctx))
	case "finalize":
		opts := lifecycle.FinalizeOptions{Print: len(args) > 0 && args[0] == "print"}
		res := c.session.Finalize(ctx, opts)
		if res.RedirectToPayment {
			fmt.Fprintln(c.out, "balance open; use pay and alloc first")
		}
		if res.OK && res.PrintErr != nil {
			fmt.Fprintf(c.out, "receipt not printed: %v\n", res.PrintErr)
		}
		return c.report(res)
	case "cancel":
		return c.report(c.session.Cancel(ctx))
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (c *console) add(ctx context.Context, args []string) error {
	productID, err := argUUID(args, 0, "product")
	if err != nil {
		return err
	}
	quantity := 1
	rest := args[1:]
	if len(rest) > 0 && !strings.Contains(rest[0], "=") {
		if quantity, err = strconv.Atoi(rest[0]); err != nil || quantity < 1 {
			return fmt.Errorf("invalid quantity %q", rest[0])
		}
		rest = rest[1:]
	}
	selections, err := c.selections(ctx, productID, rest)
	if err != nil {
		return err
	}
	return c.report(c.session.AddProduct(ctx, productID, selections, quantity))
}

// selections groups complement=qty arguments under the categories that own them.
func (c *console) selections(ctx context.Context, productID uuid.UUID, args []string) (map[uuid.UUID]complements.Selection, error) {
	if len(args) == 0 {
		return nil, nil
	}
	categories, err := c.catalog.ComplementCategories(ctx, productID)
	if err != nil {
		return nil, err
	}
	owner := map[uuid.UUID]uuid.UUID{}
	for _, category := range categories {
		for _, item := range category.Items {
			owner[item.ID] = category.ID
		}
	}

	out := map[uuid.UUID]complements.Selection{}
	for _, arg := range args {
		rawID, rawQty, _ := strings.Cut(arg, "=")
		complementID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("invalid complement %q", rawID)
		}
		qty, err := strconv.Atoi(rawQty)
		if err != nil || qty < 1 {
			return nil, fmt.Errorf("invalid complement quantity %q", rawQty)
		}
		categoryID, ok := owner[complementID]
		if !ok {
			return nil, fmt.Errorf("complement %s is not offered for this product", complementID)
		}
		if out[categoryID] == nil {
			out[categoryID] = complements.Selection{}
		}
		out[categoryID][complementID] += qty
	}
	return out, nil
}

func (c *console) allocate(ctx context.Context, args []string) error {
	methodID, err := argUUID(args, 0, "method")
	if err != nil {
		return err
	}
	alloc, res := c.session.AddAllocation(ctx, methodID)
	if err := c.report(res); err != nil || len(args) < 2 {
		return err
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid amount %q", args[1])
	}
	return c.report(c.session.UpdateAllocation(ctx, alloc.LocalID, amount))
}

// allocationArg resolves the 1-based allocation number shown by show.
func (c *console) allocationArg(args []string) (uuid.UUID, error) {
	if len(args) == 0 {
		return uuid.Nil, fmt.Errorf("allocation number required")
	}
	n, err := strconv.Atoi(args[0])
	allocs := c.session.Allocations()
	if err != nil || n < 1 || n > len(allocs) {
		return uuid.Nil, fmt.Errorf("no allocation %q", args[0])
	}
	return allocs[n-1].LocalID, nil
}

func (c *console) show() {
	s := c.session
	fmt.Fprintf(c.out, "order %s  %s  state %s\n", s.OrderID(), displayOr(s.DisplayName(), s.Slot().Code()), s.State())

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, item := range s.MergedView() {
		pending := ""
		if item.PendingQuantity > 0 {
			pending = fmt.Sprintf("(%d pending)", item.PendingQuantity)
		}
		fmt.Fprintf(tw, "  %dx\t%s\t%s\t%s\n", item.Quantity, item.Name, pricing.Format(item.Amount), pending)
	}
	_ = tw.Flush()

	totals := s.Totals()
	fmt.Fprintf(c.out, "subtotal %s  discount %s  surcharge %s  total %s\n",
		pricing.Format(totals.Subtotal), pricing.Format(totals.Discount),
		pricing.Format(totals.Surcharge), pricing.Format(totals.Total))

	allocs := s.Allocations()
	if len(allocs) == 0 {
		return
	}
	for i, alloc := range allocs {
		mark := ""
		if !alloc.Existing || alloc.Dirty() {
			mark = " *"
		}
		fmt.Fprintf(c.out, "  %d. %s  %s%s\n", i+1, alloc.MethodID, pricing.Format(alloc.Amount), mark)
	}
	summary := s.PaymentSummary()
	fmt.Fprintf(c.out, "paid %s  remaining %s  change %s\n",
		pricing.Format(summary.PaidTotal), pricing.Format(summary.Remaining), pricing.Format(summary.Change))
}

func (c *console) report(res lifecycle.Result) error {
	if err := res.Error(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "ok (%s)\n", res.State)
	return nil
}

func argUUID(args []string, idx int, what string) (uuid.UUID, error) {
	if len(args) <= idx {
		return uuid.Nil, fmt.Errorf("%s id required", what)
	}
	id, err := uuid.Parse(args[idx])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", what, args[idx])
	}
	return id, nil
}

// parseAdjustment reads "5" as an amount and "10%" as a percentage.
func parseAdjustment(raw string) (decimal.Decimal, bool, error) {
	pct := strings.HasSuffix(raw, "%")
	value, err := decimal.NewFromString(strings.TrimSuffix(raw, "%"))
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid adjustment %q", raw)
	}
	return value, pct, nil
}

func displayOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
