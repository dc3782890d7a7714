package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cortex/internal/interpreter"
)

var interpretJSON bool

// interpretCmd is the planner surface the dashboard shells out to. With
// --json it prints exactly one JSON object on stdout and nothing else;
// CORTEX_SILENT_OUTPUT additionally suppresses the status lines in
// non-JSON mode.
var interpretCmd = &cobra.Command{
	Use:   "interpret <request>",
	Short: "Translate a package request into a shell command plan (dry run)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runInterpret(args[0]))
	},
}

func init() {
	interpretCmd.Flags().BoolVar(&interpretJSON, "json", false, "emit a single JSON object on stdout")
}

// interpretResult is the wire contract with the dashboard planner.
type interpretResult struct {
	Success  bool     `json:"success"`
	Commands []string `json:"commands"`
	Error    string   `json:"error,omitempty"`
}

func runInterpret(request string) int {
	silent := os.Getenv("CORTEX_SILENT_OUTPUT") != ""

	emit := func(res interpretResult) int {
		if interpretJSON {
			data, _ := json.Marshal(res)
			fmt.Println(string(data))
		} else {
			if res.Success {
				for i, c := range res.Commands {
					fmt.Printf("%d. %s\n", i+1, c)
				}
			} else {
				fmt.Fprintln(os.Stderr, res.Error)
			}
		}
		if res.Success {
			return exitOK
		}
		return exitFailure
	}

	interp, err := interpreter.New()
	if err != nil {
		return emit(interpretResult{Success: false, Commands: []string{}, Error: err.Error()})
	}

	if !silent && !interpretJSON {
		fmt.Fprintln(os.Stderr, "Planning commands...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	commands, err := interp.Interpret(ctx, request)
	if err != nil {
		return emit(interpretResult{Success: false, Commands: []string{}, Error: err.Error()})
	}
	return emit(interpretResult{Success: true, Commands: commands})
}
