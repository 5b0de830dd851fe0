package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var syncGroupsCmd = &cobra.Command{
	Use:   "sync-groups",
	Short: "Import the gateway's WhatsApp groups as pending approval",
	Run:   syncGroups,
}

func init() {
	rootCmd.AddCommand(syncGroupsCmd)
}

func syncGroups(_ *cobra.Command, _ []string) {
	defer StopApp()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := groupUsecase.Sync(ctx)
	if err != nil {
		logrus.WithError(err).Error("[GROUPS] sync failed")
		return
	}
	fmt.Println(report.Message)
	if report.Renamed > 0 || report.IconsFetched > 0 {
		fmt.Printf("Renamed %d groups, fetched %d icons.\n", report.Renamed, report.IconsFetched)
	}
}
