package rebalance

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/internal/domain"
)

// Confirmer asks whether an order should be placed.
type Confirmer interface {
	Confirm(ctx context.Context, o Order) (bool, error)
}

// LineConfirmer reads a single y/n character per order.
type LineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineConfirmer creates a confirmer over in/out, typically stdin/stdout.
func NewLineConfirmer(in io.Reader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm implements Confirmer. Anything but y/Y declines; end of input declines.
func (c *LineConfirmer) Confirm(ctx context.Context, o Order) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(c.out, "%s? [y/n]: ", describe(o))

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Wrap(err, "read confirmation")
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return false, nil
	}
	return answer[0] == 'y' || answer[0] == 'Y', nil
}

// HuhConfirmer asks through a terminal form.
type HuhConfirmer struct{}

// Confirm implements Confirmer.
func (HuhConfirmer) Confirm(ctx context.Context, o Order) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(describe(o)).
				Description(fmt.Sprintf("~%s in wallet currency", o.Amount.StringFixed(2))).
				Affirmative("Place").
				Negative("Skip").
				Value(&ok),
		),
	).RunWithContext(ctx)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func describe(o Order) string {
	unit := "base"
	if o.Side == domain.SideBuy {
		unit = "quote"
	}
	kind := strings.ToUpper(o.Side.String())
	if o.Swap {
		kind = "SWAP " + kind
	}
	return fmt.Sprintf("%s %s %s (%s) on %s", kind, o.Size.String(), o.Symbol, unit, o.Pair)
}
