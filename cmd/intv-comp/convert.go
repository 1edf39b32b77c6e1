package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stphegia-org/intv-comp/internal/config"
	"github.com/stphegia-org/intv-comp/internal/transcript"
)

func convertCMD() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a CSV export to JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			setupLogging(cfg.LogLevel)

			if input == "" {
				input = cfg.MessagesCSVPath
			}
			if input == "" {
				return fmt.Errorf("--input or MESSAGES_CSV_PATH is required")
			}
			if output == "" {
				output = strings.TrimSuffix(input, filepath.Ext(input)) + ".json"
			}

			n, err := transcript.ConvertCSVToJSON(input, output)
			if err != nil {
				return err
			}

			fmt.Printf("変換完了: %d件のレコードを %s に出力しました\n", n, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "input CSV path")
	cmd.Flags().StringVar(&output, "output", "", "output JSON path (default: input name with .json)")
	return cmd
}
