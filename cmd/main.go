package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "coco/cmd/coco"
	"coco/conf"
	"coco/internal/client"
	"coco/internal/dao/query"
	"coco/internal/model"
	"coco/internal/service"
	"coco/pkg/logger"
	"coco/pkg/recorder"

	"github.com/spf13/cobra"
)

/*
本地调试

	go run ./cmd serve -c conf/config.yaml
	curl -H "Authorization: Bearer user-1" http://localhost:12180/api/v1/alerts

	curl -X POST http://localhost:12180/api/v1/alerts \
	  -H "Authorization: Bearer user-1" -H "Content-Type: application/json" \
	  -d '{"coinId":"bitcoin","alertType":"health_score","thresholdValue":40}'

	go run ./cmd poll --token user-1
*/

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "coco",
		Short:         "Coin alert rules, notification dispatch and stake pools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 加载配置文件
			if err := conf.LoadConfig(configPath); err != nil {
				return err
			}
			logger.InitLogger(&conf.AppConfig.Log, conf.AppConfig.AppName)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "conf/config.yaml", "config file")
	root.AddCommand(serveCmd(), migrateCmd(), sweepCmd(), pollCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the delivery workers and the periodic sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg := conf.AppConfig
			app, err := api.NewApp(appCfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			app.Start(ctx)

			// 创建并启动服务
			srv := api.NewServer(&appCfg)
			srv.RegisterOnShutdown(cancel)
			err = srv.Run(ctx, app.Router)
			cancel()
			app.Close()
			return err
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if conf.AppConfig.Db.Driver == "memory" {
				return fmt.Errorf("database driver is memory, nothing to migrate")
			}
			gdb, err := api.OpenDB(conf.AppConfig)
			if err != nil {
				return err
			}
			if err := query.AutoMigrate(gdb); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrate finished")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	var recordPath string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a single evaluation sweep and deliver the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := api.NewApp(conf.AppConfig)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			app.Start(ctx)
			res, err := app.Sweeper.RunOnce(ctx)
			// 等待已入队的投递完成
			app.Close()
			fmt.Printf("coins=%d evaluated=%d skipped=%d rules=%d firings=%d queued=%d rate_limited=%d snoozed=%d\n",
				res.Coins, res.Evaluated, res.Skipped, res.Rules, res.Firings,
				res.Dispatch.Queued, res.Dispatch.RateLimited, res.Dispatch.Snoozed)
			if recordPath != "" {
				if rerr := recorder.NewJSONFileRecorder(recordPath).Record(sweepRecord{At: time.Now().UTC(), Result: res}); rerr != nil {
					logger.Errorf("record sweep result: %v", rerr)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "append the sweep result as a JSON line to this file")
	return cmd
}

type sweepRecord struct {
	At     time.Time           `json:"at"`
	Result service.SweepResult `json:"result"`
}

func pollCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll pending notifications for a user and print new ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			pc := conf.AppConfig.Poller
			state := client.NewAlertState()
			fetcher := client.NewHTTPFetcher(pc.BaseURL, token, pc.Limit)
			poller := client.NewPoller(fetcher, pc.Interval, func(list []model.NotificationRes) {
				for _, n := range state.ReplacePending(list) {
					fmt.Printf("[%s] %s %s %s\n", n.SentAt.Format("2006-01-02 15:04:05"), n.Severity, n.CoinID, n.Message)
				}
			})

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := poller.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			poller.Stop()
			logger.Infof("poller stopped, %d ticks skipped while busy", poller.Skipped())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token (user id in opaque mode)")
	return cmd
}
