package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hstrader/client"
	"hstrader/internal/dashboard"
	"hstrader/logger"
	"hstrader/models"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStreamCmd(opts *rootOptions) *cobra.Command {
	var market bool
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Connect to the event stream and log every event until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, c, err := setup(opts)
			if err != nil {
				return err
			}
			defer cancel()

			log := logger.GetLogger().WithComponent("cli")
			mon := dashboard.NewServer(opts.cfg.Dashboard, logger.GetLogger(), dashboard.Sources{
				Status:  c.ReportFields,
				Symbols: c.Symbols,
			})

			c.OnConnect(func() { log.Info("stream connected") })
			c.OnDisconnect(func() { log.Info("stream disconnected") })
			c.OnSummary(func(s models.Summary) {
				mon.RecordSummary(s)
				log.WithFields(logger.Fields{"balance": s.Balance, "equity": s.Equity, "margin_level": s.MarginLevel}).Info("summary")
			})
			c.OnPositionPL(func(pl models.PositionPL) {
				mon.RecordPositionPL(pl)
				log.WithFields(logger.Fields{"position_id": pl.PositionID, "profit": pl.Profit}).Info("position profit")
			})
			c.OnOrder(func(o models.Order, s models.Status) {
				log.WithFields(logger.Fields{"order_id": o.ID, "status": s}).Info("order")
			})
			c.OnPosition(func(p models.Position, s models.Status) {
				log.WithFields(logger.Fields{"position_id": p.ID, "status": s}).Info("position")
			})
			c.OnDeal(func(d models.Deal, s models.Status) {
				log.WithFields(logger.Fields{"deal_id": d.ID, "status": s}).Info("deal")
			})
			c.OnError(func(e models.ErrorEvent) {
				log.WithFields(logger.Fields{"reason": e.Reason}).Warn(e.Message)
			})
			if market {
				c.OnMarket(func(t models.Tick) {
					mon.RecordTick(t)
					log.WithFields(logger.Fields{"symbol_id": t.SymbolID, "bid": t.Bid, "ask": t.Ask}).Debug("tick")
				})
			}

			// The monitor lives as long as the stream; a monitor failure
			// stops the stream too.
			streamCtx, stopMonitor := context.WithCancel(ctx)
			defer stopMonitor()
			g, gctx := errgroup.WithContext(streamCtx)
			g.Go(func() error { return mon.Run(gctx) })
			g.Go(func() error {
				defer stopMonitor()
				return c.Start(gctx)
			})
			err = g.Wait()

			stats := c.StreamStats()
			log.WithFields(logger.Fields{
				"frames_received": stats.Received,
				"frames_decoded":  stats.Decoded,
				"frames_dropped":  stats.Dropped,
			}).Info("stream finished")
			return err
		},
	}
	cmd.Flags().BoolVar(&market, "market", false, "Subscribe to the market feed and log quotes at debug level")
	return cmd
}

func newSymbolsCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Print the symbol catalogue with spreads applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, c, err := setup(opts)
			if err != nil {
				return err
			}
			defer cancel()

			if name != "" {
				s, err := c.GetSymbol(ctx, name)
				if err != nil {
					return err
				}
				return printJSON(s)
			}
			return printJSON(c.Symbols())
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Fetch a single symbol by name")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		symbolID   int64
		resolution string
		side       string
		countBack  int
		from, to   string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print market history bars for one symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := models.ParseResolution(resolution)
			if err != nil {
				return err
			}
			mt, err := models.ParseMarketType(side)
			if err != nil {
				return err
			}
			req := client.HistoryRequest{SymbolID: symbolID, Resolution: res, Side: mt, CountBack: countBack}
			if req.From, err = parseTime(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if req.To, err = parseTime(to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			ctx, cancel, c, err := setup(opts)
			if err != nil {
				return err
			}
			defer cancel()

			bars, err := c.GetMarketHistory(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(bars)
		},
	}
	cmd.Flags().Int64Var(&symbolID, "symbol-id", 0, "Symbol id")
	cmd.Flags().StringVar(&resolution, "resolution", "1m", "Bar resolution: 1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w, 1mo")
	cmd.Flags().StringVar(&side, "side", "bid", "Price side: bid or ask")
	cmd.Flags().IntVar(&countBack, "count-back", 300, "Number of bars when --from is not set")
	cmd.Flags().StringVar(&from, "from", "", "Start time (RFC3339, YYYY-MM-DD or epoch seconds)")
	cmd.Flags().StringVar(&to, "to", "", "End time (RFC3339, YYYY-MM-DD or epoch seconds); defaults to now")
	_ = cmd.MarkFlagRequired("symbol-id")
	return cmd
}

func newAccountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Print the account with open positions and pending orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, c, err := setup(opts)
			if err != nil {
				return err
			}
			defer cancel()

			account, err := c.GetAccount(ctx)
			if err != nil {
				return err
			}
			positions, err := c.GetPositions(ctx)
			if err != nil {
				return err
			}
			orders, err := c.GetOrders(ctx)
			if err != nil {
				return err
			}
			return printJSON(struct {
				Account   models.Account    `json:"account"`
				Positions []models.Position `json:"positions"`
				Orders    []models.Order    `json:"orders"`
			}{account, positions, orders})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	var ts models.Timestamp
	if err := ts.UnmarshalJSON([]byte(fmt.Sprintf("%q", s))); err == nil {
		return ts.Time, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
