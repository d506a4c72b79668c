package commands

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/accountbook/backend/internal/audit"
	"github.com/accountbook/backend/internal/config"
	"github.com/accountbook/backend/internal/database"
	"github.com/accountbook/backend/internal/ledger"
	"github.com/accountbook/backend/internal/models"
	"github.com/accountbook/backend/internal/services"
)

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <bookId>",
		Short: "Print the merged ledger and totals of an account book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || bookID <= 0 {
				return fmt.Errorf("invalid account book id %q", args[0])
			}

			ctx := cmd.Context()
			db, err := database.InitDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			service := services.NewLedgerService(db, config.LoadLedgerConfig(), audit.NewLogger())
			book, err := service.GetAccountBook(ctx, bookID)
			if err != nil {
				return err
			}
			l, err := service.Load(ctx, bookID)
			if err != nil {
				return err
			}

			return renderLedger(cmd.OutOrStdout(), book, l)
		},
	}
}

// renderLedger prints stored lines in ledger order followed by the totals.
// The placeholder row is not shown.
func renderLedger(out io.Writer, book models.AccountBook, l *services.Ledger) error {
	fmt.Fprintf(out, "%s (#%d)  debt %s  balance %s\n\n",
		book.Name, book.ID, ledger.FormatMoney(book.Debt), ledger.FormatMoney(book.Balance))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tID\tNAME\tNET\tAMOUNT\tDISCOUNT\tTAX\tPRICE\tTOTAL\tPAYMENT\tBALANCE")
	for _, line := range l.Lines {
		if line.ID.IsTemporary() {
			continue
		}
		date := line.Date.Format("2006-01-02")
		switch line.Kind {
		case models.KindProduct:
			p := line.Product
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s%%\t%s\t%s\t\t\n",
				date, line.ID, p.Name, p.NetPrice, p.Amount, p.Discount, p.Tax, p.Price, p.TotalPrice)
		case models.KindPayment:
			p := line.Payment
			balance := ""
			if pb, ok := l.Totals.PaymentBalance[line.ID.String()]; ok {
				balance = ledger.FormatMoney(pb.Balance)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t\t\t\t\t\t\t%s\t%s\n",
				date, line.ID, p.Name, p.Payment, balance)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	t := l.Totals
	fmt.Fprintf(out, "\nnet %s  discount %s  tax %s  gross %s  paid %s  debt %s\n",
		ledger.FormatMoney(t.TotalNet), ledger.FormatMoney(t.TotalDiscount), ledger.FormatMoney(t.TotalTax),
		ledger.FormatMoney(t.TotalGross), ledger.FormatMoney(t.TotalPayment), ledger.FormatMoney(t.Debt()))
	return nil
}
