package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Check that the configured Evolution API instance answers",
	Run:   testConnection,
}

func init() {
	rootCmd.AddCommand(testConnectionCmd)
}

func testConnection(_ *cobra.Command, _ []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := settingsUsecase.TestConnection(ctx, nil)
	StopApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(result.Message)
	if !result.Success {
		os.Exit(1)
	}
}
