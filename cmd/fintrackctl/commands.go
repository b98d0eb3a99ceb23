package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	file     string
	logLevel string

	repo   *storage.CSVRepository
	svc    *services.TransactionService
	engine *query.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{}
	defaults := config.Defaults()

	root := &cobra.Command{
		Use:           "fintrackctl",
		Short:         "Manage a fintrack transaction file from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	file := defaults.TransactionsFile
	if v := strings.TrimSpace(os.Getenv("TRANSACTIONS_FILE")); v != "" {
		file = v
	}
	root.PersistentFlags().StringVarP(&a.file, "file", "f", file, "transaction CSV file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.listCmd(),
		a.addCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.summaryCmd(),
		a.searchCmd(),
		a.exportCmd(),
	)
	return root
}

func (a *app) init(ctx context.Context, logOut io.Writer) error {
	level, err := applog.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	cfg := applog.DefaultConfig()
	cfg.Level = level
	cfg.Component = applog.ComponentCLI
	cfg.Output = logOut
	applog.SetDefault(applog.New(cfg))

	if strings.TrimSpace(a.file) == "" {
		return errors.New("--file cannot be empty")
	}
	a.repo = storage.NewCSVRepository(a.file)
	if err := a.repo.EnsureInitialized(ctx); err != nil {
		return err
	}
	a.svc = services.NewTransactionService(a.repo, nil)
	a.engine = query.NewEngine(a.repo)
	return nil
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := a.engine.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]core.Row, len(txs))
			for i, tx := range txs {
				rows[i] = tx.Row()
			}
			return writeRows(cmd.OutOrStdout(), rows)
		},
	}
}

type fieldFlags struct {
	date, txType, category, amount, payment, description string
}

func (f *fieldFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "date as YYYY-MM-DD")
	cmd.Flags().StringVar(&f.txType, "type", "", "Income or Expense")
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount")
	cmd.Flags().StringVar(&f.payment, "payment-method", "", "payment method")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
}

func (a *app) addCmd() *cobra.Command {
	var f fieldFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := a.svc.Create(cmd.Context(), services.CreateInput{
				Date:          f.date,
				Type:          f.txType,
				Category:      f.category,
				Amount:        f.amount,
				PaymentMethod: f.payment,
				Description:   f.description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transaction added: %s\n", tx.ID)
			return nil
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// parseIDArg accepts only the canonical decimal form, since stored IDs are
// matched as text. Anything else cannot name a transaction.
func parseIDArg(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 || strconv.FormatInt(id, 10) != s {
		return 0, false
	}
	return id, true
}

func (a *app) updateCmd() *cobra.Command {
	var f fieldFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update fields of a transaction; omitted fields keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := parseIDArg(args[0])
			if !ok {
				return &core.NotFoundError{ID: args[0]}
			}
			res, err := a.svc.Update(cmd.Context(), id, services.UpdateInput{
				Date:          f.date,
				Type:          f.txType,
				Category:      f.category,
				Amount:        f.amount,
				PaymentMethod: f.payment,
				Description:   f.description,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			fmt.Fprintln(out, "Transaction updated")
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed := false
			if id, ok := parseIDArg(args[0]); ok {
				var err error
				if removed, err = a.svc.Delete(cmd.Context(), id); err != nil {
					return err
				}
			}
			if removed {
				fmt.Fprintln(cmd.OutOrStdout(), "Transaction deleted")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Transaction not found")
			}
			return nil
		},
	}
}

func money(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show income, expense, balance and expenses per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.engine.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Total income\t%s\n", money(s.TotalIncome))
			fmt.Fprintf(tw, "Total expense\t%s\n", money(s.TotalExpense))
			fmt.Fprintf(tw, "Balance\t%s\n", money(s.Balance))
			if cats := s.Categories(); len(cats) > 0 {
				fmt.Fprintln(tw, "\t")
				for _, c := range cats {
					fmt.Fprintf(tw, "%s\t%s\n", c.Name, money(c.Amount))
				}
			}
			if len(s.Skipped) > 0 {
				fmt.Fprintf(tw, "Skipped rows\t%d\n", len(s.Skipped))
			}
			return tw.Flush()
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var p query.SearchParams
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search by date, category or amount range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("min") {
				p.Min = "0"
			}
			if !cmd.Flags().Changed("max") {
				p.Max = "0"
			}
			res, err := a.engine.Search(cmd.Context(), p)
			if err != nil {
				return err
			}
			return writeRows(cmd.OutOrStdout(), res.Rows)
		},
	}
	cmd.Flags().StringVar(&p.Mode, "mode", "", "date, category or amount")
	cmd.Flags().StringVar(&p.Date, "date", "", "date to match (mode date)")
	cmd.Flags().StringVar(&p.Category, "category", "", "category to match, any case (mode category)")
	cmd.Flags().StringVar(&p.Min, "min", "", "lower amount bound (mode amount)")
	cmd.Flags().StringVar(&p.Max, "max", "", "upper amount bound (mode amount)")
	_ = cmd.MarkFlagRequired("mode")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write transactions and summary to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			txs, err := a.engine.ListAll(ctx)
			if err != nil {
				return err
			}
			s, err := a.engine.Summarize(ctx)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.WriteXLSX(f, txs, s); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", len(txs), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "transactions.xlsx", "output file")
	return cmd
}

func writeRows(w io.Writer, rows []core.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(core.Header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}
