package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cortex/internal/history"
)

var (
	historyLimit  int
	historyStatus string
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show installation history",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			os.Exit(showHistoryRecord(args[0]))
		}
		os.Exit(listHistory())
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum records to show")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "filter by status (success, failed, cancelled)")
}

func listHistory() int {
	store, err := history.Open(historyPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗", err)
		return exitFailure
	}
	defer store.Close()

	records, err := store.List(historyLimit, historyStatus)
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗", err)
		return exitFailure
	}
	if len(records) == 0 {
		fmt.Println("No installations recorded.")
		return exitOK
	}

	fmt.Printf("%-10s %-10s %-12s %-20s %s\n", "ID", "KIND", "STATUS", "STARTED", "PACKAGES")
	for _, r := range records {
		fmt.Printf("%-10s %-10s %-12s %-20s %s\n",
			r.ID, r.Kind, r.Status,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			strings.Join(r.Packages, ", "))
	}
	return exitOK
}

func showHistoryRecord(id string) int {
	store, err := history.Open(historyPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗", err)
		return exitFailure
	}
	defer store.Close()

	r, err := store.Get(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ no installation with ID %s\n", id)
		return exitFailure
	}

	fmt.Println("ID:      ", r.ID)
	fmt.Println("Kind:    ", r.Kind)
	fmt.Println("Status:  ", r.Status)
	fmt.Println("Packages:", strings.Join(r.Packages, ", "))
	fmt.Println("Started: ", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Println("Commands:")
	for i, c := range r.Commands {
		fmt.Printf("  %d. %s\n", i+1, c)
	}
	if r.Error != "" {
		fmt.Println("Error:   ", r.Error)
	}
	return exitOK
}
