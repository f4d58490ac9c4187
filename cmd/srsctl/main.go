// Command srsctl is the operator CLI for a collection: backup, restore,
// and a terminal review loop, using a persistent --config flag and
// colorized status output.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	srscore "github.com/flashgrid/srscore"
	"github.com/flashgrid/srscore/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "srsctl",
	Short: "srsctl operates a flashcard collection from the terminal",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "srsd.yaml", "path to the daemon config file")
	rootCmd.AddCommand(backupCmd, restoreCmd, reviewCmd, statsCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "create a zip backup of the collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		col, err := srscore.Open(cfg.Database.Path, cfg.Backup.Dir)
		if err != nil {
			return err
		}
		defer col.Close(true)

		path, err := col.Backup.Create("default")
		if err != nil {
			return err
		}
		if err := col.Backup.CleanupOld(cfg.Backup.RetentionCount); err != nil {
			return err
		}
		fmt.Println(color.GreenString("backup written to %s", path))
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-zip>",
	Short: "restore the collection from a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		col, err := srscore.Open(cfg.Database.Path, cfg.Backup.Dir)
		if err != nil {
			return err
		}
		if err := col.Close(false); err != nil {
			return err
		}
		if err := col.Backup.Restore(args[0]); err != nil {
			fmt.Println(color.RedString("restore failed: %v", err))
			return err
		}
		fmt.Println(color.GreenString("restored from %s", args[0]))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "print due-card counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		col, err := srscore.Open(cfg.Database.Path, cfg.Backup.Dir)
		if err != nil {
			return err
		}
		defer col.Close(true)

		newCount, lrnCount, revCount := col.Scheduler.Counts()
		fmt.Printf("new: %s  learning: %s  review: %s\n",
			color.BlueString("%d", newCount),
			color.YellowString("%d", lrnCount),
			color.GreenString("%d", revCount))
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "study the collection from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		col, err := srscore.Open(cfg.Database.Path, cfg.Backup.Dir)
		if err != nil {
			return err
		}
		defer col.Close(true)

		scanner := bufio.NewScanner(os.Stdin)
		reviewed := 0
		for {
			card := col.GetCard()
			if card == nil {
				break
			}
			note, err := col.Store.GetNote(card.NoteID)
			if err != nil {
				return err
			}
			fmt.Println(color.CyanString("--- card %d ---", card.ID))
			if len(note.Fields) > 0 {
				fmt.Println(note.Fields[0])
			}
			fmt.Print("press enter to reveal, then grade 1-4 (Again/Hard/Good/Easy): ")
			scanner.Scan()

			if len(note.Fields) > 1 {
				fmt.Println(strings.Join(note.Fields[1:], " | "))
			}
			fmt.Print("grade> ")
			if !scanner.Scan() {
				break
			}
			ease, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err != nil || ease < 1 || ease > 4 {
				fmt.Println(color.RedString("grade must be 1-4, skipping"))
				continue
			}
			if err := col.AnswerCard(card, ease, 0); err != nil {
				return err
			}
			reviewed++
		}
		fmt.Println(color.GreenString("reviewed %d cards", reviewed))
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
