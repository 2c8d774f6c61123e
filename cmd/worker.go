package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/time2pay/internal/notification"
	"github.com/frahmantamala/time2pay/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background worker pools",
	Long:  `Run and exercise the background worker pools, currently the email notification pool.`,
}

var notifyWorkerCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send a test email through the notification pool",
	Long:  `Start the notification worker pool, queue one test email and wait for it to be delivered.`,
	Run: func(cmd *cobra.Command, args []string) {
		runNotifyWorker()
	},
}

var (
	notifyTo     string
	notifySubj   string
	maxWorkers   int
	jobQueueSize int
)

func runNotifyWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	initLogger(config)
	lg := logger.LoggerWrapper()

	if notifyTo == "" {
		fmt.Fprintln(os.Stderr, "--to is required")
		os.Exit(1)
	}

	config.Notification.MaxWorkers = getIntFlag(maxWorkers, config.Notification.MaxWorkers)
	config.Notification.JobQueueSize = getIntFlag(jobQueueSize, config.Notification.JobQueueSize)

	lg.Info("starting notification worker",
		"max_workers", config.Notification.MaxWorkers,
		"job_queue_size", config.Notification.JobQueueSize,
		"smtp_host", config.Mail.Host)

	dispatcher := newDispatcher(config, lg)

	msg := notification.Message{
		To:       notifyTo,
		Subject:  getStringFlag(notifySubj, "Time2Pay test notification"),
		HTMLBody: fmt.Sprintf("<p>Test notification sent at %s.</p>", time.Now().Format(time.RFC1123)),
	}
	if err := dispatcher.Enqueue(msg, "cli-test"); err != nil {
		lg.Error("failed to queue test email", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dispatcher.Shutdown(ctx)
	if ctx.Err() != nil {
		lg.Warn("shutdown timeout reached, forcing exit")
		return
	}
	lg.Info("notification worker finished")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	notifyWorkerCmd.Flags().StringVar(&notifyTo, "to", "", "Recipient address for the test email")
	notifyWorkerCmd.Flags().StringVar(&notifySubj, "subject", "", "Subject of the test email")
	notifyWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	notifyWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")

	workerCmd.AddCommand(notifyWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
