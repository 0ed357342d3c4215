package cmd

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	remindOwner uint
	remindShift string
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Operate unpaid reminders",
}

var remindSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send the unpaid report of a shift now",
	Long:  `Send the unpaid report of an owner's shift immediately. The send claims the current minute, so it never duplicates a scheduled dispatch.`,
	RunE:  runRemindSend,
}

var remindTickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run a single scheduler pass",
	RunE:  runRemindTick,
}

func init() {
	remindSendCmd.Flags().UintVar(&remindOwner, "owner", 0, "owner id")
	remindSendCmd.Flags().StringVar(&remindShift, "shift", "", "shift name")
	_ = remindSendCmd.MarkFlagRequired("owner")
	_ = remindSendCmd.MarkFlagRequired("shift")

	remindCmd.AddCommand(remindSendCmd)
	remindCmd.AddCommand(remindTickCmd)
	rootCmd.AddCommand(remindCmd)
}

func runRemindSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.notifierErr != nil {
		return errors.Wrap(app.notifierErr, "email is not configured")
	}

	result, err := app.services.Reminders.SendNow(cmd.Context(), remindOwner, remindShift)
	if result != nil {
		printJSON(result)
	}
	return err
}

func runRemindTick(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.notifierErr != nil {
		return errors.Wrap(app.notifierErr, "email is not configured")
	}

	results, err := app.services.Reminders.Tick(cmd.Context())
	if err != nil {
		return err
	}
	printJSON(results)
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
