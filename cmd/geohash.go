package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SurEtBon/backend/internal/geohash"
)

var geohashCmd = &cobra.Command{
	Use:   "geohash",
	Short: "Inspect geohash adjacency",
	Long:  "Computes neighboring geohash cells at the same precision, for checking the match windows used to join the two datasets.",
}

var geohashAdjacentCmd = &cobra.Command{
	Use:   "adjacent <cell> <north|south|east|west>",
	Short: "Print the adjacent cell in one direction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := geohash.ParseDirection(args[1])
		if err != nil {
			return err
		}

		cell, err := geohash.Adjacent(args[0], dir)
		if err != nil {
			return err
		}

		if !cell.Valid {
			fmt.Fprintln(cmd.OutOrStdout(), "(no neighbor: grid edge)")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), cell.Hash)
		return nil
	},
}

// neighborLabels follows the slot order of geohash.Neighbors.
var neighborLabels = [9]string{
	"center", "north", "south", "east", "west",
	"north-east", "north-west", "south-east", "south-west",
}

var geohashNeighborsCmd = &cobra.Command{
	Use:   "neighbors <cell>",
	Short: "Print the 3x3 neighborhood of a cell",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cells, err := geohash.Neighbors(args[0])
		if err != nil {
			return err
		}

		for i, cell := range cells {
			if cell.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "%-11s %s\n", neighborLabels[i], cell.Hash)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%-11s (none)\n", neighborLabels[i])
			}
		}
		return nil
	},
}

func init() {
	geohashCmd.AddCommand(geohashAdjacentCmd)
	geohashCmd.AddCommand(geohashNeighborsCmd)
	rootCmd.AddCommand(geohashCmd)
}
