package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andreasstove999/pos-terminal-go/internal/session"
)

const helpText = `commands:
  search <text>   search products by name
  scan <code>     scan a barcode (adds the first match)
  add <id>        add one unit of a searched product
  inc <id>        +1 (also: + <id>)
  dec <id>        -1 (also: - <id>)
  qty <id> <n>    set a line's quantity
  type <t>        sale type: boleta | factura
  pay <m>         payment: efectivo | debito | credito | transferencia
  tender <amount> cash received
  tx <number>     transaction number (non-cash)
  bank <name>     bank name (transferencia)
  confirm         confirm the sale (then 'yes' / 'cancel')
  undo            undo the last quantity adjustment
  cart            show the cart
  close           close the register (then 'yes')
  quit            exit`

// Run drives the line-oriented operator loop until the input ends, the
// context is cancelled, or the operator quits. Every failure is printed and
// the loop continues; no error is fatal to the session.
func (c *Controller) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	pendingClose := false

	fmt.Fprintln(c.out, helpText)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		if pendingClose {
			pendingClose = false
			if cmd == "yes" || cmd == "y" {
				if _, err := c.CloseRegister(ctx); err != nil {
					fmt.Fprintf(c.out, "error: %v\n", err)
					continue
				}
				return nil
			}
			fmt.Fprintln(c.out, "close cancelled")
			continue
		}

		if c.sess.State() == session.AwaitingConfirmation {
			switch cmd {
			case "yes", "y":
				if err := c.Submit(ctx); err != nil {
					fmt.Fprintf(c.out, "error: %v\n", err)
				}
			case "no", "cancel":
				if err := c.CancelConfirm(); err != nil {
					fmt.Fprintf(c.out, "error: %v\n", err)
				}
			default:
				fmt.Fprintln(c.out, "awaiting confirmation: 'yes' or 'cancel'")
			}
			continue
		}

		var err error
		switch cmd {
		case "search":
			err = c.Search(ctx, strings.Join(args, " "))
		case "scan":
			err = c.Scan(ctx, strings.Join(args, " "))
		case "add":
			err = withID(args, func(id int) error { return c.Add(ctx, id) })
		case "inc", "+":
			err = withID(args, func(id int) error { c.Increment(ctx, id); return nil })
		case "dec", "-":
			err = withID(args, func(id int) error { c.Decrement(ctx, id); return nil })
		case "qty":
			if len(args) != 2 {
				err = fmt.Errorf("usage: qty <id> <n>")
				break
			}
			var id, n int
			if id, err = strconv.Atoi(args[0]); err != nil {
				err = fmt.Errorf("bad product id %q", args[0])
				break
			}
			if n, err = strconv.Atoi(args[1]); err != nil {
				err = fmt.Errorf("bad quantity %q", args[1])
				break
			}
			c.SetQuantity(ctx, id, n)
		case "type":
			err = c.sess.SelectSaleType(strings.Join(args, ""))
		case "pay":
			err = c.sess.SelectPaymentMethod(strings.Join(args, ""))
			if err == nil {
				c.renderCart()
			}
		case "tender":
			err = c.sess.SetTendered(strings.Join(args, ""))
			if err == nil {
				c.renderCart()
			}
		case "tx":
			err = c.sess.SetTransactionNumber(strings.Join(args, " "))
		case "bank":
			err = c.sess.SetBankName(strings.Join(args, " "))
		case "confirm":
			err = c.Confirm()
		case "undo":
			err = c.Undo(ctx)
		case "cart":
			c.renderCart()
		case "close":
			fmt.Fprintln(c.out, "close the register? type 'yes' to confirm")
			pendingClose = true
		case "help":
			fmt.Fprintln(c.out, helpText)
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(c.out, "unknown command %q (try 'help')\n", cmd)
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func withID(args []string, fn func(id int) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected a product id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad product id %q", args[0])
	}
	return fn(id)
}
